// Package assistant serves the Jarvis HTTP sidecar: contextual chat replies,
// vision analysis forwarding, and the news feed proxy.
package assistant

import "strings"

// AgentName identifies the assistant persona on every chat reply.
const AgentName = "Jarvis"

// responseConfidence is fixed; the responder is rule-based, not a model.
const responseConfidence = 0.9

// keywordClass pairs trigger words with a reply template. {name} is replaced
// with the requesting user's display name.
type keywordClass struct {
	keywords []string
	template string
}

// classes are checked in order; the first match wins.
var classes = []keywordClass{
	{
		keywords: []string{"hello", "hi", "hey"},
		template: "Hello {name}! I'm Jarvis, your magical AI assistant in Euphorie. I can help with coding, learning, creative projects and more!",
	},
	{
		keywords: []string{"camera", "vision", "see"},
		template: "With AI Vision enabled, I can see what you're working on and provide contextual help - perfect for debugging code or explaining documents!",
	},
	{
		keywords: []string{"code", "debug", "programming", "error"},
		template: "I'd love to help with coding! Enable camera vision so I can see your screen and help debug issues, explain code, or suggest improvements.",
	},
	{
		keywords: []string{"learn", "study", "explain", "help"},
		template: "I'm here to help you learn! Enable camera vision and I can even assist with textbooks, documents, or any learning materials you're reading.",
	},
	{
		keywords: []string{"thank"},
		template: "You're very welcome, {name}! I'm always here to help however I can.",
	},
	{
		keywords: []string{"genie", "magic", "wizard"},
		template: "Indeed, {name}! I am your digital genie, floating here with magical powers to assist you. My crown and energy rings aren't just for show - they represent my readiness to grant your wishes for knowledge and help!",
	},
	{
		keywords: []string{"beautiful", "cool", "awesome", "amazing"},
		template: "Thank you, {name}! I do try to look my best with my ethereal form and swirling energy. Beauty and function combined - that's the Euphorie way!",
	},
}

const fallbackTemplate = "I'm here to assist, {name}! I can help with coding, learning, creative work, and more. Enable AI Vision for contextual help based on what you show me!"

// Respond picks the reply for one chat message. Matching is case-insensitive
// substring search over the trigger words.
func Respond(message, userName string) string {
	if userName == "" {
		userName = "User"
	}
	lower := strings.ToLower(message)

	for _, class := range classes {
		for _, kw := range class.keywords {
			if strings.Contains(lower, kw) {
				return interpolate(class.template, userName)
			}
		}
	}
	return interpolate(fallbackTemplate, userName)
}

func interpolate(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}
