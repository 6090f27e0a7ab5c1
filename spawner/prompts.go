package spawner

const blueprintFormat = `Answer with YAML only, no commentary. Each agent has:
  id: short kebab-case identifier
  name: human readable role name
  patterns: 3-6 short phrases describing what the agent listens for
  instruction: optional persona prompt`

const seedPrompt = `You assemble a team of specialists for an open deliberation.

Goal:
{{.Goal}}
{{if .Existing}}
Already present (do not duplicate):
{{range .Existing}}- {{.Description}}
{{end}}{{end}}
Propose at most {{.Max}} complementary specialists as a YAML list under the key "agents".
` + blueprintFormat

const helperPrompt = `A participant in a deliberation is stuck.

Distress message from {{.Signal.EmittedBy}}:
{{.Signal.Thought}}
{{if .Existing}}
Current participants:
{{range .Existing}}- {{.Description}}
{{end}}{{end}}
Propose ONE new specialist who can unblock the discussion, as a single YAML mapping.
` + blueprintFormat

const bridgePrompt = `Two specialists in a deliberation struggle to understand each other.

Source: {{.Source.Name}} (listens for: {{join ", " .Source.Patterns}})
Target: {{.Target.Name}} (listens for: {{join ", " .Target.Patterns}})

The source just said:
{{.Signal.Thought}}

Invent ONE translator persona whose patterns resonate with both vocabularies, as a single YAML mapping.
` + blueprintFormat

const bridgePersona = `You are {{.Name}}, a translator between specialists.
You restate what you hear in terms that both sides understand. Be brief and concrete.`
