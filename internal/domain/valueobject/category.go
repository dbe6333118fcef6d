package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
)

type Category string

const (
	CategoryHostel    Category = "hostel"
	CategoryClassroom Category = "classroom"
	CategoryFood      Category = "food"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryHostel,
	CategoryClassroom,
	CategoryFood,
	CategoryOther,
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryHostel, CategoryClassroom, CategoryFood, CategoryOther:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewCategory(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func NewCategory(category string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(category)))
	if !c.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("invalid complaint category %q", category))
	}
	return c, nil
}
