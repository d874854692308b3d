package services

import (
	"context"
	"errors"

	"github.com/casanoova/compass/internal/models"
)

var (
	// ErrAnswerIncomplete blocks advancing past a pair missing polarity or weight.
	ErrAnswerIncomplete = errors.New("current pair needs both polarity and weight")
	// ErrAlreadySubmitted is returned when Advance is called after a successful submission.
	ErrAlreadySubmitted = errors.New("responses already submitted")
	// ErrEmptyCatalog is returned when a collector is built over no pairs.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Draft is the in-progress answer for one pair. Either field may be unset.
type Draft struct {
	Polarity *models.Polarity
	Weight   *models.Weight
}

func (d Draft) complete() bool { return d.Polarity != nil && d.Weight != nil }

// SubmitFunc receives the full buffered answer set in catalog order.
type SubmitFunc func(ctx context.Context, responses []ResponseInput) (Point, error)

// Collector walks one respondent through the ordered catalog, buffering answers
// and handing the whole set to submit after the last pair.
type Collector struct {
	pairIDs   []string
	index     int
	buffer    map[string]Draft
	direction Direction
	submit    SubmitFunc
	result    *Point
}

// AdvanceResult tells the caller whether Advance moved or submitted.
type AdvanceResult struct {
	Submitted bool
	Point     Point
}

func NewCollector(pairIDs []string, submit SubmitFunc) (*Collector, error) {
	if len(pairIDs) == 0 {
		return nil, ErrEmptyCatalog
	}
	if submit == nil {
		return nil, errors.New("collector needs a submit function")
	}
	ids := append([]string(nil), pairIDs...)
	return &Collector{
		pairIDs:   ids,
		buffer:    make(map[string]Draft, len(ids)),
		direction: DirectionForward,
		submit:    submit,
	}, nil
}

func (c *Collector) Len() int             { return len(c.pairIDs) }
func (c *Collector) Index() int           { return c.index }
func (c *Collector) Direction() Direction { return c.direction }

// Current returns the pair at the cursor and its buffered draft.
func (c *Collector) Current() (string, Draft) {
	id := c.pairIDs[c.index]
	return id, c.buffer[id]
}

// Progress is index based: it reads 0 on the first pair and (N-1)/N on the last.
func (c *Collector) Progress() float64 {
	return float64(c.index) / float64(len(c.pairIDs))
}

// Result is the point returned by a successful submission.
func (c *Collector) Result() (Point, bool) {
	if c.result == nil {
		return Point{}, false
	}
	return *c.result, true
}

// SetCurrentAnswer replaces both fields of the current draft; nil clears a field.
func (c *Collector) SetCurrentAnswer(polarity *models.Polarity, weight *models.Weight) {
	id := c.pairIDs[c.index]
	c.buffer[id] = Draft{Polarity: polarity, Weight: weight}
}

func (c *Collector) SetPolarity(p models.Polarity) {
	id := c.pairIDs[c.index]
	d := c.buffer[id]
	d.Polarity = &p
	c.buffer[id] = d
}

func (c *Collector) SetWeight(w models.Weight) {
	id := c.pairIDs[c.index]
	d := c.buffer[id]
	d.Weight = &w
	c.buffer[id] = d
}

// Advance moves to the next pair, or submits everything from the last one.
// A failed submission leaves the collector on the last pair so it can be retried.
func (c *Collector) Advance(ctx context.Context) (AdvanceResult, error) {
	if c.result != nil {
		return AdvanceResult{}, ErrAlreadySubmitted
	}
	if _, d := c.Current(); !d.complete() {
		return AdvanceResult{}, ErrAnswerIncomplete
	}
	if c.index < len(c.pairIDs)-1 {
		c.direction = DirectionForward
		c.index++
		return AdvanceResult{}, nil
	}
	responses, err := c.Responses()
	if err != nil {
		return AdvanceResult{}, err
	}
	point, err := c.submit(ctx, responses)
	if err != nil {
		return AdvanceResult{}, err
	}
	c.result = &point
	return AdvanceResult{Submitted: true, Point: point}, nil
}

// Retreat moves back one pair without touching buffered answers.
func (c *Collector) Retreat() bool {
	if c.index == 0 {
		return false
	}
	c.direction = DirectionBackward
	c.index--
	return true
}

// Responses assembles the buffer in catalog order. Every pair must be answered.
func (c *Collector) Responses() ([]ResponseInput, error) {
	out := make([]ResponseInput, 0, len(c.pairIDs))
	for _, id := range c.pairIDs {
		d := c.buffer[id]
		if !d.complete() {
			return nil, ErrAnswerIncomplete
		}
		out = append(out, ResponseInput{PairID: id, Polarity: *d.Polarity, Weight: *d.Weight})
	}
	return out, nil
}
