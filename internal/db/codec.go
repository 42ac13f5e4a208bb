package db

import (
	"encoding/json"
	"fmt"

	"scandemo/internal/model"
)

// Scans are stored as JSON blobs so the schema does not chase the display
// record.
func encodeScan(scan model.Scan) (string, error) {
	b, err := json.Marshal(scan)
	if err != nil {
		return "", fmt.Errorf("failed to encode scan: %w", err)
	}
	return string(b), nil
}

func decodeScan(content string) (model.Scan, error) {
	var scan model.Scan
	if err := json.Unmarshal([]byte(content), &scan); err != nil {
		return model.Scan{}, fmt.Errorf("failed to decode scan: %w", err)
	}
	return scan, nil
}
