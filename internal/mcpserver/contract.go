package mcpserver

// IdeaFormatContract describes the idea fields and lifecycle that LLM
// consumers should follow when creating or updating ideas.
const IdeaFormatContract = `# Idea Card Contract

An idea is a short piece of text with tags, blockers, and links to the ideas
it was born with.

## Fields

- **body** (required): free text, one thought per idea. May contain #tags.
- **tags**: comma-separated list, e.g. ` + "`" + `garden, weekend` + "`" + `. Order is kept, duplicates dropped.
- **blockers**: one blocker per line. A blocker is something that stops the idea
  from moving forward.
- **born_with**: comma-separated idea ids this idea came from. Links are
  symmetric: linking 4 to 9 also links 9 to 4.

## Lifecycle

| status   | meaning                                      |
|----------|----------------------------------------------|
| active   | default; shown on the top page               |
| execute  | being worked on                              |
| transfer | handed off; exported to the dictionary vault |
| deleted  | discarded, kept for history                  |

Change the status with ` + "`" + `update_idea_status` + "`" + `. Creating an idea never needs a
status; it starts as ` + "`" + `active` + "`" + `.

## Example

` + "```" + `json
{"body": "Plant herbs on the balcony", "tags": "garden, spring", "blockers": "buy pots\nfind seeds"}
` + "```" + `
`
