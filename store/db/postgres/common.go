package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
)

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

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

func unmarshalCategories(raw []byte) ([]string, error) {
	categories := []string{}
	if len(raw) == 0 {
		return categories, nil
	}
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
