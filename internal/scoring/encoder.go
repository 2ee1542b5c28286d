package scoring

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory is matched by every UnknownCategoryError.
var ErrUnknownCategory = errors.New("unknown category")

// UnknownCategoryError names the request field and the value no fitted
// encoder vocabulary contains.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for field %s", e.Value, e.Field)
}

func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}

// CategoryEncoder maps a categorical value to its fitted numeric code.
type CategoryEncoder interface {
	Encode(value string) (float64, error)
	// Categories returns the accepted vocabulary in code order.
	Categories() []string
}

// LabelEncoder assigns each class its index in the sorted class list, the
// same way the encoder was fitted.
type LabelEncoder struct {
	field   string
	classes []string
	codes   map[string]int
}

// NewLabelEncoder builds a label encoder over classes. Classes must be
// non-empty, unique and sorted.
func NewLabelEncoder(field string, classes []string) (*LabelEncoder, error) {
	codes, err := indexVocabulary(classes)
	if err != nil {
		return nil, fmt.Errorf("label encoder %s: %w", field, err)
	}
	if !sort.StringsAreSorted(classes) {
		return nil, fmt.Errorf("label encoder %s: classes are not sorted", field)
	}
	return &LabelEncoder{
		field:   field,
		classes: append([]string(nil), classes...),
		codes:   codes,
	}, nil
}

func (e *LabelEncoder) Encode(value string) (float64, error) {
	code, ok := e.codes[value]
	if !ok {
		return 0, &UnknownCategoryError{Field: e.field, Value: value}
	}
	return float64(code), nil
}

func (e *LabelEncoder) Categories() []string {
	return append([]string(nil), e.classes...)
}

// OrdinalEncoder ranks a value by its position in a fixed ordered vocabulary.
type OrdinalEncoder struct {
	field      string
	categories []string
	ranks      map[string]int
}

// NewOrdinalEncoder builds an ordinal encoder. The order of categories is the
// rank order and is kept as given.
func NewOrdinalEncoder(field string, categories []string) (*OrdinalEncoder, error) {
	ranks, err := indexVocabulary(categories)
	if err != nil {
		return nil, fmt.Errorf("ordinal encoder %s: %w", field, err)
	}
	return &OrdinalEncoder{
		field:      field,
		categories: append([]string(nil), categories...),
		ranks:      ranks,
	}, nil
}

func (e *OrdinalEncoder) Encode(value string) (float64, error) {
	rank, ok := e.ranks[value]
	if !ok {
		return 0, &UnknownCategoryError{Field: e.field, Value: value}
	}
	return float64(rank), nil
}

func (e *OrdinalEncoder) Categories() []string {
	return append([]string(nil), e.categories...)
}

func indexVocabulary(values []string) (map[string]int, error) {
	if len(values) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	index := make(map[string]int, len(values))
	for i, v := range values {
		if _, dup := index[v]; dup {
			return nil, fmt.Errorf("duplicate category %q", v)
		}
		index[v] = i
	}
	return index, nil
}
