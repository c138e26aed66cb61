package internal

import (
	"fmt"
	"strings"
)

// Topic is one of the fixed life-planning subject areas tracked per session
type Topic string

const (
	TopicIncomeCashFlow     Topic = "income_cash_flow"
	TopicHealthcareMedicare Topic = "healthcare_medicare"
	TopicHousingGeography   Topic = "housing_geography"
	TopicTaxEfficiencyRMDs  Topic = "tax_efficiency_rmds"
	TopicLongevityInflation Topic = "longevity_inflation"
	TopicLongTermCare       Topic = "long_term_care"
	TopicLifestylePurpose   Topic = "lifestyle_purpose"
	TopicEstatePlanning     Topic = "estate_planning"
)

// CanonicalTopics lists every recognized topic in display order.
// Monitors number them from 1.
var CanonicalTopics = []Topic{
	TopicIncomeCashFlow,
	TopicHealthcareMedicare,
	TopicHousingGeography,
	TopicTaxEfficiencyRMDs,
	TopicLongevityInflation,
	TopicLongTermCare,
	TopicLifestylePurpose,
	TopicEstatePlanning,
}

// IsValid reports whether t is a canonical topic
func (t Topic) IsValid() bool {
	for _, known := range CanonicalTopics {
		if t == known {
			return true
		}
	}
	return false
}

// ValidateTopic parses raw into a canonical Topic
func ValidateTopic(raw string) (Topic, error) {
	topic := Topic(strings.TrimSpace(raw))
	if !topic.IsValid() {
		return "", &ValidationError{
			Field: "topic",
			Msg:   fmt.Sprintf("invalid topic %q, expected one of: %s", raw, topicList()),
		}
	}
	return topic, nil
}

// TopicByNumber returns the topic for a 1-based menu number
func TopicByNumber(n int) (Topic, bool) {
	if n < 1 || n > len(CanonicalTopics) {
		return "", false
	}
	return CanonicalTopics[n-1], true
}

func topicList() string {
	names := make([]string, len(CanonicalTopics))
	for i, t := range CanonicalTopics {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
