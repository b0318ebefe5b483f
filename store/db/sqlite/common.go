package sqlite

import (
	"encoding/json"
	"strings"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(_ int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func marshalCategories(categories []string) (string, error) {
	if len(categories) == 0 {
		return "[]", nil
	}
	buf, err := json.Marshal(categories)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func unmarshalCategories(raw string) ([]string, error) {
	categories := []string{}
	if raw == "" {
		return categories, nil
	}
	if err := json.Unmarshal([]byte(raw), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
