package domain

import "time"

// PredicateOperation mirrors the v2beta1 filter operation enum.
type PredicateOperation string

const (
	PredicateEquals         PredicateOperation = "EQUALS"
	PredicateNotEquals      PredicateOperation = "NOT_EQUALS"
	PredicateGreaterThan    PredicateOperation = "GREATER_THAN"
	PredicateLessThan       PredicateOperation = "LESS_THAN"
	PredicateIsSubstring    PredicateOperation = "IS_SUBSTRING"
	PredicateGreaterOrEqual PredicateOperation = "GREATER_THAN_EQUALS"
	PredicateLessOrEqual    PredicateOperation = "LESS_THAN_EQUALS"
)

type Predicate struct {
	Key         string             `json:"key"`
	Operation   PredicateOperation `json:"operation"`
	StringValue string             `json:"string_value,omitempty"`
}

type Filter struct {
	Predicates []Predicate `json:"predicates"`
}

// NameEquals builds the exact-match filter used to look a pipeline up by name.
func NameEquals(name string) Filter {
	return Filter{
		Predicates: []Predicate{
			{
				Key:         "name",
				Operation:   PredicateEquals,
				StringValue: name,
			},
		},
	}
}

type Pipeline struct {
	PipelineID  string     `json:"pipeline_id"`
	Name        string     `json:"name,omitempty"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description,omitempty"`
	Namespace   string     `json:"namespace,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type PipelineList struct {
	Pipelines     []Pipeline `json:"pipelines"`
	TotalSize     int        `json:"total_size"`
	NextPageToken string     `json:"next_page_token"`
}
