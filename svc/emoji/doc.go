// Package emoji suggests a single emoji for a group from its name and
// description.
//
// Two strategies implement Suggester. Keyword matches case-folded words
// against an ordered YAML table and picks a random default when nothing
// matches. OpenAI asks a chat completion model. New selects one from
// Config; the openai strategy is wrapped in Fallback so a failed call
// still yields a keyword suggestion.
package emoji
