package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/tiptap"
)

// Глубина распаковки строк, закодированных в JSON несколько раз
const maxUnwrapDepth = 4

// TruncatedWarning - текст параграфа, который показывается вместо поврежденного содержимого.
const TruncatedWarning = "Содержимое документа повреждено и не может быть отображено полностью. Обратитесь к автору документа."

// Outcome описывает, как было загружено содержимое.
type Outcome int

const (
	OutcomeDocument Outcome = iota
	OutcomeEmpty
	OutcomeLegacy
	OutcomePlainText
	OutcomeTruncated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDocument:
		return "document"
	case OutcomeEmpty:
		return "empty"
	case OutcomeLegacy:
		return "legacy"
	case OutcomePlainText:
		return "plain-text"
	case OutcomeTruncated:
		return "truncated"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decode приводит сохраненное содержимое к документу. Принимаются объект документа, JSON-строка,
// обертка {"editorState": ...} и строка, закодированная в JSON повторно. Ошибка не возвращается:
// нераспознанное содержимое становится простым текстом, обрезанное - предупреждением.
func Decode(raw any) (edtypes.SerializedEditorState, Outcome) {
	switch v := raw.(type) {
	case nil:
		return edtypes.EmptyState(), OutcomeEmpty
	case edtypes.SerializedEditorState:
		v.Normalize()
		return v, OutcomeDocument
	case *edtypes.SerializedEditorState:
		if v == nil {
			return edtypes.EmptyState(), OutcomeEmpty
		}
		s := *v
		s.Normalize()
		return s, OutcomeDocument
	case []byte:
		return decodeString(string(v))
	case json.RawMessage:
		return decodeString(string(v))
	case string:
		return decodeString(v)
	case map[string]any:
		state, outcome, err := decodeValue(v, 0)
		switch {
		case err == nil:
			return state, outcome
		case errors.Is(err, errTruncated):
			return edtypes.PlainTextState(TruncatedWarning), OutcomeTruncated
		}
		return plainText(marshalText(v))
	}
	return plainText(fmt.Sprint(raw))
}

func decodeString(s string) (edtypes.SerializedEditorState, Outcome) {
	if strings.TrimSpace(s) == "" {
		return edtypes.EmptyState(), OutcomeEmpty
	}
	v, err := unmarshal(s)
	if err != nil {
		if looksTruncated(s, err) {
			return edtypes.PlainTextState(TruncatedWarning), OutcomeTruncated
		}
		return plainText(s)
	}
	state, outcome, err := decodeValue(v, 0)
	if err != nil {
		if errors.Is(err, errTruncated) {
			return edtypes.PlainTextState(TruncatedWarning), OutcomeTruncated
		}
		return plainText(s)
	}
	return state, outcome
}

var (
	errNotDocument = errors.New("value is not an editor document")
	errTruncated   = errors.New("nested content is truncated")
)

// decodeValue распаковывает разобранное JSON-значение до документа.
func decodeValue(v any, depth int) (edtypes.SerializedEditorState, Outcome, error) {
	if depth > maxUnwrapDepth {
		return edtypes.SerializedEditorState{}, 0, errNotDocument
	}
	switch val := v.(type) {
	case nil:
		return edtypes.EmptyState(), OutcomeEmpty, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return edtypes.EmptyState(), OutcomeEmpty, nil
		}
		inner, err := unmarshal(val)
		if err != nil {
			if looksTruncated(val, err) {
				return edtypes.SerializedEditorState{}, 0, errTruncated
			}
			return edtypes.SerializedEditorState{}, 0, err
		}
		return decodeValue(inner, depth+1)
	case map[string]any:
		if envelope, ok := val["editorState"]; ok {
			return decodeValue(envelope, depth+1)
		}
		if _, ok := val["root"]; ok {
			state, err := edtypes.StateFromMap(val)
			if err != nil {
				return edtypes.SerializedEditorState{}, 0, err
			}
			return state, OutcomeDocument, nil
		}
		if tiptap.IsDocument(val) {
			state, err := tiptap.ParseMap(val)
			if err != nil {
				return edtypes.SerializedEditorState{}, 0, err
			}
			return state, OutcomeLegacy, nil
		}
	}
	return edtypes.SerializedEditorState{}, 0, errNotDocument
}

func unmarshal(s string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()
	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil, err
	}
	// Хвост после значения означает, что это не JSON
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// looksTruncated определяет обрезанный JSON: ошибка конца ввода или незакрытые скобки
// у содержимого, похожего на JSON.
func looksTruncated(s string, err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "unexpected end of JSON input") {
		return true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && syntaxErr.Offset >= int64(len(bytes.TrimSpace([]byte(s)))) {
		return true
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	depth := 0
	inString, escaped := false, false
	for _, r := range trimmed {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		}
	}
	return inString || depth > 0
}

func plainText(s string) (edtypes.SerializedEditorState, Outcome) {
	if strings.TrimSpace(s) == "" {
		return edtypes.EmptyState(), OutcomeEmpty
	}
	return edtypes.PlainTextState(s), OutcomePlainText
}

func marshalText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
