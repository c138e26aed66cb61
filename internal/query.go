package internal

import (
	"context"
	"sort"
)

// FactReader reads a session's Information Ledger
type FactReader interface {
	ReadFacts(ctx context.Context, sessionID string) ([]Fact, error)
}

// TopicFacts groups facts by topic, each list in ledger order
type TopicFacts map[Topic][]Fact

// Topics returns the topics that have facts, in canonical order
func (tf TopicFacts) Topics() []Topic {
	topics := make([]Topic, 0, len(tf))
	for _, topic := range CanonicalTopics {
		if len(tf[topic]) > 0 {
			topics = append(topics, topic)
		}
	}
	return topics
}

// Count returns the total number of facts
func (tf TopicFacts) Count() int {
	n := 0
	for _, facts := range tf {
		n += len(facts)
	}
	return n
}

// Flatten returns every fact in ledger order
func (tf TopicFacts) Flatten() []Fact {
	all := make([]Fact, 0, tf.Count())
	for _, facts := range tf {
		all = append(all, facts...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Seq < all[j].Seq
	})
	return all
}

// QueryService answers "what has been captured for this session"
type QueryService struct {
	reader FactReader
}

// NewQueryService creates a query service over reader
func NewQueryService(reader FactReader) *QueryService {
	return &QueryService{reader: reader}
}

// Query returns every fact of the session grouped by topic.
// An unknown session yields a SessionNotFoundError; an empty one yields an empty map.
func (q *QueryService) Query(ctx context.Context, sessionID string) (TopicFacts, error) {
	facts, err := q.reader.ReadFacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	grouped := make(TopicFacts)
	for _, fact := range facts {
		grouped[fact.Topic] = append(grouped[fact.Topic], fact)
	}
	return grouped, nil
}
