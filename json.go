package lri

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// IntrinsicsToJSONString serializes intrinsics to the stable schema. A
// negative indent produces compact output, otherwise each level is indented
// by that many spaces. The float64 fields round-trip bit-exactly.
func IntrinsicsToJSONString(intrinsics Intrinsics, indent int) (string, error) {
	var (
		data []byte
		err  error
	)
	if indent < 0 {
		data, err = json.Marshal(intrinsics)
	} else {
		data, err = json.MarshalIndent(intrinsics, "", strings.Repeat(" ", indent))
	}
	if err != nil {
		return "", fmt.Errorf("marshal intrinsics: %w", err)
	}
	return string(data), nil
}

// IntrinsicsFromJSONString parses intrinsics from the stable schema.
func IntrinsicsFromJSONString(s string) (Intrinsics, error) {
	var intrinsics Intrinsics

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(&intrinsics); err != nil {
		return Intrinsics{}, fmt.Errorf("%w: parse intrinsics: %v", ErrInternal, err)
	}

	return intrinsics, nil
}

// IntrinsicsToJSONFile writes intrinsics to a file; see
// IntrinsicsToJSONString for the indent convention.
func IntrinsicsToJSONFile(intrinsics Intrinsics, path string, indent int) error {
	s, err := IntrinsicsToJSONString(intrinsics, indent)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0644); err != nil {
		return fmt.Errorf("write intrinsics file: %w", err)
	}
	return nil
}

// IntrinsicsFromJSONFile reads intrinsics from a file.
func IntrinsicsFromJSONFile(path string) (Intrinsics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Intrinsics{}, fmt.Errorf("read intrinsics file: %w", err)
	}
	return IntrinsicsFromJSONString(string(data))
}
