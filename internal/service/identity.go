package service

import "strings"

// IdentityRule answers a fixed question locally, without calling the provider.
type IdentityRule struct {
	Patterns []string
	Response string
}

// IdentityRules returns the ordered canned answers for the given provider family.
func IdentityRules(poweredBy string) []IdentityRule {
	return []IdentityRule{
		{
			Patterns: []string{"who created you", "who made you"},
			Response: "I was created by **CraftingCrazeGaming** (company name). I am an advanced AI assistant powered by " +
				poweredBy + " with many capabilities including text formatting, image generation, file creation, and more.",
		},
		{
			Patterns: []string{"who are you", "what are you"},
			Response: "I am **CrazeGPT**, an advanced AI assistant powered by " + poweredBy +
				". I was enhanced by CraftingCrazeGaming with additional features. I can help you with text formatting, " +
				"image generation, file creation, code generation, and much more!",
		},
	}
}

func matchIdentity(rules []IdentityRule, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, p := range rule.Patterns {
			if strings.Contains(lower, p) {
				return rule.Response, true
			}
		}
	}
	return "", false
}
