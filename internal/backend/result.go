package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Result is the single typed view of every backend reply. Endpoints signal
// success with true, "true", "SUCCESS", 1 or only through their message text;
// Interpret folds all of these into OK.
type Result struct {
	OK      bool            `json:"ok"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StatusError is a failure reported by the backend in a 2xx response.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend reported failure (status %q)", e.Status)
	}
	return e.Message
}

// ErrEmptyResponse is returned when the backend replies with nothing usable.
var ErrEmptyResponse = errors.New("empty backend response")

// Err returns a *StatusError when the result is not OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// Decode unmarshals the payload into v. The first key present in Data among
// keys is used; otherwise Data itself. A one-element array is unwrapped.
func (r Result) Decode(v interface{}, keys ...string) error {
	payload := r.Data
	if len(keys) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(r.Data, &obj); err == nil {
			for _, k := range keys {
				if raw, ok := obj[k]; ok && !isNull(raw) {
					payload = raw
					break
				}
			}
		}
	}
	payload = unwrapArray(payload)
	if len(payload) == 0 {
		return ErrEmptyResponse
	}
	return json.Unmarshal(payload, v)
}

// Interpret parses a raw backend body into a Result.
func Interpret(body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Result{Message: ErrEmptyResponse.Error()}, nil
	}

	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return Result{}, fmt.Errorf("decode array response: %w", err)
		}
		if len(items) == 0 {
			return Result{Message: ErrEmptyResponse.Error()}, nil
		}
		body = bytes.TrimSpace(items[0])
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		// Some endpoints answer with a bare sentinel.
		ok, known, text := parseSentinel(body)
		if !known && !json.Valid(body) {
			return Result{}, fmt.Errorf("decode response: %w", err)
		}
		return Result{OK: ok, Status: text, Data: json.RawMessage(body)}, nil
	}

	res := Result{Data: json.RawMessage(body)}
	for _, k := range []string{"message", "msg"} {
		if raw, ok := obj[k]; ok {
			res.Message = rawText(raw)
			if res.Message != "" {
				break
			}
		}
	}

	for _, k := range []string{"status", "success", "result"} {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		ok, known, text := parseSentinel(raw)
		res.Status = text
		if known {
			res.OK = ok
			return res, nil
		}
		break
	}

	res.OK = sniffMessage(res.Message)
	return res, nil
}

func parseSentinel(raw json.RawMessage) (ok bool, known bool, text string) {
	text = rawText(raw)
	switch strings.ToLower(text) {
	case "true", "success", "ok", "1", "yes", "successful":
		return true, true, text
	case "false", "failure", "fail", "failed", "error", "0", "no", "":
		return false, true, text
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return n == 1, true, text
	}
	return false, false, text
}

func sniffMessage(msg string) bool {
	m := strings.ToLower(msg)
	if strings.Contains(m, "unsuccess") || strings.Contains(m, "not ") || strings.Contains(m, "fail") {
		return false
	}
	return strings.Contains(m, "success")
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(string(raw))
}

func unwrapArray(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return raw
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}
	return items[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
