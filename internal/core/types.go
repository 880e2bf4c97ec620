package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chatcart/internal/llm"
	"chatcart/pkg"
)

// MaxUtteranceLength bounds a single user utterance in bytes.
const MaxUtteranceLength = 2000

var (
	// ErrInvalidUtterance rejects empty, oversized or non UTF-8 input before
	// it enters the pipeline.
	ErrInvalidUtterance = errors.New("invalid utterance")
	// ErrTurnInProgress is returned when a session already has a turn in flight.
	ErrTurnInProgress = errors.New("turn already in progress")
	ErrUnknownProduct = errors.New("unknown product")
)

// Catalog is the product source the processor reads from.
type Catalog interface {
	Products(ctx context.Context) []pkg.Product
	Lookup(ctx context.Context, id pkg.ProductID) (pkg.Product, bool)
	CatalogText(ctx context.Context) string
}

// TurnOutput is the result of one handled utterance.
type TurnOutput struct {
	Response          string         `json:"response"`
	Intent            pkg.Intent     `json:"intent"`
	Action            llm.ActionKind `json:"action"`
	Products          []pkg.Product  `json:"products,omitempty"`
	ProcessingTime    time.Duration  `json:"processing_time"`
	PersistenceFailed bool           `json:"persistence_failed,omitempty"`
}

// ValidateUtterance trims the utterance and rejects it when it cannot enter
// the pipeline.
func ValidateUtterance(utterance string) (string, error) {
	if !utf8.ValidString(utterance) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidUtterance)
	}
	text := strings.TrimSpace(utterance)
	if text == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUtterance)
	}
	if len(text) > MaxUtteranceLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidUtterance, MaxUtteranceLength)
	}
	return text, nil
}
