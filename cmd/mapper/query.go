package main

import (
	"fmt"

	"github.com/chlorophyll/mapper/predicate"
	"github.com/chlorophyll/mapper/query"
)

// jsonQuery is the on-disk shape of a query-algebra fixture: exactly one
// field is set, naming which query.Query node this object decodes to.
// This exists only for the cmd/mapper demo harness — the core packages
// never serialize a query.Query.
type jsonQuery struct {
	Select *jsonSelect `json:"select,omitempty"`
	Group  []jsonQuery `json:"group,omitempty"`
	Filter *jsonFilter `json:"filter,omitempty"`
	Narrow *jsonNarrow `json:"narrow,omitempty"`
}

type jsonSelect struct {
	Name  string     `json:"name"`
	Alias string     `json:"alias,omitempty"`
	Child *jsonQuery `json:"child,omitempty"`
}

type jsonNarrow struct {
	TargetType string     `json:"targetType"`
	Child      *jsonQuery `json:"child,omitempty"`
}

type jsonFilter struct {
	Pred  jsonPred   `json:"pred"`
	Child *jsonQuery `json:"child,omitempty"`
}

// jsonPred mirrors jsonQuery's one-field-set discriminant for predicates.
type jsonPred struct {
	Eql   *jsonCmp   `json:"eql,omitempty"`
	NEql  *jsonCmp   `json:"neql,omitempty"`
	Lt    *jsonCmp   `json:"lt,omitempty"`
	LtEql *jsonCmp   `json:"ltEql,omitempty"`
	Gt    *jsonCmp   `json:"gt,omitempty"`
	GtEql *jsonCmp   `json:"gtEql,omitempty"`
	In    *jsonIn    `json:"in,omitempty"`
	And   []jsonPred `json:"and,omitempty"`
	Or    []jsonPred `json:"or,omitempty"`
	Not   *jsonPred  `json:"not,omitempty"`
}

type jsonCmp struct {
	Path  string `json:"path"`
	Const any    `json:"const"`
}

type jsonIn struct {
	Path   string `json:"path"`
	Values []any  `json:"values"`
}

func (jq jsonQuery) build() (query.Query, error) {
	switch {
	case jq.Select != nil:
		child, err := buildChild(jq.Select.Child)
		if err != nil {
			return nil, err
		}
		return query.Select{Name: jq.Select.Name, Alias: jq.Select.Alias, Child: child}, nil
	case jq.Group != nil:
		children := make([]query.Query, len(jq.Group))
		for i, g := range jq.Group {
			c, err := g.build()
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return query.NewGroup(children...), nil
	case jq.Filter != nil:
		pred, err := jq.Filter.Pred.build()
		if err != nil {
			return nil, err
		}
		child, err := buildChild(jq.Filter.Child)
		if err != nil {
			return nil, err
		}
		return query.Filter{Pred: pred, Child: child}, nil
	case jq.Narrow != nil:
		child, err := buildChild(jq.Narrow.Child)
		if err != nil {
			return nil, err
		}
		return query.Narrow{TargetType: jq.Narrow.TargetType, Child: child}, nil
	default:
		return nil, fmt.Errorf("query fixture: empty node")
	}
}

func buildChild(jq *jsonQuery) (query.Query, error) {
	if jq == nil {
		return query.Empty{}, nil
	}
	return jq.build()
}

func (jp jsonPred) build() (predicate.Predicate, error) {
	switch {
	case jp.Eql != nil:
		return predicate.NewEql(predicate.NewPath(jp.Eql.Path), predicate.Const{Value: jp.Eql.Const}), nil
	case jp.NEql != nil:
		return predicate.NewNEql(predicate.NewPath(jp.NEql.Path), predicate.Const{Value: jp.NEql.Const}), nil
	case jp.Lt != nil:
		return predicate.NewLt(predicate.NewPath(jp.Lt.Path), predicate.Const{Value: jp.Lt.Const}), nil
	case jp.LtEql != nil:
		return predicate.NewLtEql(predicate.NewPath(jp.LtEql.Path), predicate.Const{Value: jp.LtEql.Const}), nil
	case jp.Gt != nil:
		return predicate.NewGt(predicate.NewPath(jp.Gt.Path), predicate.Const{Value: jp.Gt.Const}), nil
	case jp.GtEql != nil:
		return predicate.NewGtEql(predicate.NewPath(jp.GtEql.Path), predicate.Const{Value: jp.GtEql.Const}), nil
	case jp.In != nil:
		return predicate.In{X: predicate.NewPath(jp.In.Path), Values: jp.In.Values}, nil
	case jp.And != nil:
		terms := make([]predicate.Predicate, len(jp.And))
		for i, p := range jp.And {
			t, err := p.build()
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		return predicate.And{Terms: terms}, nil
	case jp.Or != nil:
		terms := make([]predicate.Predicate, len(jp.Or))
		for i, p := range jp.Or {
			t, err := p.build()
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		return predicate.Or{Terms: terms}, nil
	case jp.Not != nil:
		t, err := jp.Not.build()
		if err != nil {
			return nil, err
		}
		return predicate.Not{Term: t}, nil
	default:
		return nil, fmt.Errorf("query fixture: empty predicate node")
	}
}
