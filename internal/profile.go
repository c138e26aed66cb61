package internal

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// UncategorizedSubtopic labels facts recorded without a subtopic
const UncategorizedSubtopic = "(uncategorized)"

// SubtopicGroup holds the facts of one subtopic in ledger order
type SubtopicGroup struct {
	Subtopic string
	Facts    []Fact
}

// TopicGroup holds the subtopics of one topic in first-appearance order
type TopicGroup struct {
	Topic     Topic
	Subtopics []SubtopicGroup
}

// GroupProfile groups facts by topic (canonical order) and subtopic (first appearance).
// Topics without facts are omitted.
func GroupProfile(facts []Fact) []TopicGroup {
	byTopic := make(map[Topic][]SubtopicGroup, len(CanonicalTopics))
	for _, fact := range facts {
		if !fact.Topic.IsValid() {
			continue
		}
		subtopic := strings.TrimSpace(fact.Subtopic)
		if subtopic == "" {
			subtopic = UncategorizedSubtopic
		}

		groups := byTopic[fact.Topic]
		found := false
		for i := range groups {
			if groups[i].Subtopic == subtopic {
				groups[i].Facts = append(groups[i].Facts, fact)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, SubtopicGroup{Subtopic: subtopic, Facts: []Fact{fact}})
		}
		byTopic[fact.Topic] = groups
	}

	result := make([]TopicGroup, 0, len(byTopic))
	for _, topic := range CanonicalTopics {
		if groups, ok := byTopic[topic]; ok {
			result = append(result, TopicGroup{Topic: topic, Subtopics: groups})
		}
	}
	return result
}

// FormatLabel turns a fact type such as "goal_focus" into "Goal focus".
// An empty fact type becomes "Fact".
func FormatLabel(factType string) string {
	label := strings.TrimSpace(strings.ReplaceAll(factType, "_", " "))
	if label == "" {
		return "Fact"
	}
	label = strings.ToLower(label)
	r, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(r)) + label[size:]
}
