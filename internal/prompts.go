package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultPrompts = map[Topic]string{
	TopicIncomeCashFlow: "Let's talk about where your retirement income will come from. " +
		"Which sources do you expect (Social Security, pensions, savings withdrawals, part-time work), " +
		"and roughly how much do you need each month to cover your spending?",
	TopicHealthcareMedicare: "How do you plan to cover healthcare before and after Medicare eligibility? " +
		"Tell me about your current coverage, expected out-of-pocket costs, and any ongoing conditions.",
	TopicHousingGeography: "Where do you picture living in retirement? " +
		"Do you plan to stay in your current home, downsize, or relocate, and what does that cost?",
	TopicTaxEfficiencyRMDs: "How are your savings split between taxable, tax-deferred, and Roth accounts? " +
		"Have you thought about withdrawal order, Roth conversions, or required minimum distributions?",
	TopicLongevityInflation: "How long should your plan last, given your health and family history? " +
		"How worried are you about inflation eroding your purchasing power?",
	TopicLongTermCare: "If you needed long-term care someday, how would you pay for it? " +
		"Do you have insurance, family support, or savings set aside for that possibility?",
	TopicLifestylePurpose: "What does a fulfilling retirement look like for you day to day? " +
		"Travel, hobbies, volunteering, family time, or part-time work?",
	TopicEstatePlanning: "Do you have a will, trusts, powers of attorney, and up-to-date beneficiary designations? " +
		"What legacy would you like to leave?",
}

// PromptBook holds the recommended conversation prompt for each topic
type PromptBook struct {
	prompts map[Topic]string
}

// DefaultPromptBook returns the built-in prompts
func DefaultPromptBook() *PromptBook {
	prompts := make(map[Topic]string, len(defaultPrompts))
	for topic, prompt := range defaultPrompts {
		prompts[topic] = prompt
	}
	return &PromptBook{prompts: prompts}
}

// LoadPromptBook overlays the prompts in path (a YAML or JSON object keyed by topic)
// on top of the built-in prompts. An empty path returns the defaults.
func LoadPromptBook(path string) (*PromptBook, error) {
	book := DefaultPromptBook()
	if strings.TrimSpace(path) == "" {
		return book, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("topic prompt file not found: %s", path)
		}
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("topic prompt file must contain an object mapping topics to prompts: %w", err)
	}

	for key, prompt := range overrides {
		topic, err := ValidateTopic(key)
		if err != nil {
			LogWarn("Ignoring prompt for unknown topic %q in %s", key, path)
			continue
		}
		if strings.TrimSpace(prompt) != "" {
			book.prompts[topic] = strings.TrimSpace(prompt)
		}
	}
	LogDebug("Loaded %d prompt overrides from %s", len(overrides), path)
	return book, nil
}

// Lookup returns the recommended prompt for topic
func (pb *PromptBook) Lookup(topic Topic) (string, bool) {
	prompt, ok := pb.prompts[topic]
	return prompt, ok && prompt != ""
}
