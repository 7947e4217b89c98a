package persist

import (
	"encoding/json"
	"fmt"

	"fincontrol/internal/core"
)

// The snapshot codec serializes state losslessly: dates travel as calendar
// values ("YYYY-MM-DD", via core.Date), amounts as integer cents.

type recordsSnapshot struct {
	Records []core.ExpenseRecord `json:"records"`
}

type goalSnapshot struct {
	GoalCents int64 `json:"goal_cents"`
}

func EncodeRecords(records []core.ExpenseRecord) ([]byte, error) {
	data, err := json.Marshal(recordsSnapshot{Records: records})
	if err != nil {
		return nil, fmt.Errorf("encode records snapshot: %w", err)
	}
	return data, nil
}

func DecodeRecords(data []byte) ([]core.ExpenseRecord, error) {
	var snap recordsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode records snapshot: %w", err)
	}
	return snap.Records, nil
}

func EncodeGoal(goal core.Money) ([]byte, error) {
	data, err := json.Marshal(goalSnapshot{GoalCents: goal.Cents})
	if err != nil {
		return nil, fmt.Errorf("encode goal snapshot: %w", err)
	}
	return data, nil
}

func DecodeGoal(data []byte) (core.Money, error) {
	var snap goalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Money{}, fmt.Errorf("decode goal snapshot: %w", err)
	}
	return core.Money{Cents: snap.GoalCents}, nil
}

func EncodeCategories(categories []core.Category) ([]byte, error) {
	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories snapshot: %w", err)
	}
	return data, nil
}

func DecodeCategories(data []byte) ([]core.Category, error) {
	var out []core.Category
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode categories snapshot: %w", err)
	}
	return out, nil
}

func EncodeBanks(banks []core.Bank) ([]byte, error) {
	data, err := json.Marshal(banks)
	if err != nil {
		return nil, fmt.Errorf("encode banks snapshot: %w", err)
	}
	return data, nil
}

func DecodeBanks(data []byte) ([]core.Bank, error) {
	var out []core.Bank
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode banks snapshot: %w", err)
	}
	return out, nil
}
