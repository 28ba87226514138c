// Package partial turns the ever-growing text buffer of a streaming
// response into typed partial values before generation finishes.
package partial

import (
	"encoding/json"
	"strings"
)

type containerState int

const (
	topValue containerState = iota // expecting the top-level value
	topDone                        // top-level value complete
	objKey                         // inside {}, expecting a key or }
	objColon                       // key parsed, expecting :
	objValue                       // colon parsed, expecting a value
	objNext                        // value parsed, expecting , or }
	arrValue                       // inside [], expecting a value or ]
	arrNext                        // value parsed, expecting , or ]
)

// Repair heuristically completes syntactically-truncated JSON so that it
// parses as a prefix of the final value: unterminated strings, objects
// and arrays are closed, dangling commas and incomplete trailing
// number/literal tokens are dropped, and a key left without its value
// gets null. Well-formed input is returned unchanged.
func Repair(s string) string {
	var (
		stack      []containerState // enclosing containers, innermost last
		state      = topValue
		inString   bool
		escStart   = -1 // index of an unresolved backslash escape
		unicodeRem int
		tokenStart = -1 // start of an in-flight number/literal token
	)

	push := func(next containerState) {
		stack = append(stack, state)
		state = next
	}
	pop := func() {
		if len(stack) == 0 {
			state = topDone
			return
		}
		state = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		state = valueDone(state)
	}
	endToken := func() {
		tokenStart = -1
		state = valueDone(state)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case unicodeRem > 0:
				unicodeRem--
				if unicodeRem == 0 {
					escStart = -1
				}
			case escStart >= 0:
				if c == 'u' {
					unicodeRem = 4
				} else {
					escStart = -1
				}
			case c == '\\':
				escStart = i
			case c == '"':
				inString = false
				if state == objKey {
					state = objColon
				} else {
					state = valueDone(state)
				}
			}
			continue
		}

		if isTokenChar(c) {
			if tokenStart < 0 {
				tokenStart = i
			}
			continue
		}
		if tokenStart >= 0 {
			endToken()
		}

		switch c {
		case '"':
			inString = true
		case '{':
			push(objKey)
		case '[':
			push(arrValue)
		case '}', ']':
			pop()
		case ':':
			if state == objColon {
				state = objValue
			}
		case ',':
			switch state {
			case objNext:
				state = objKey
			case arrNext:
				state = arrValue
			}
		}
	}

	out := s

	// An escape sequence cut mid-way cannot be closed as-is; rewind to
	// the backslash before terminating the string.
	if inString && escStart >= 0 {
		out = out[:escStart]
	}
	if inString {
		out += `"`
		if state == objKey {
			state = objColon
		} else {
			state = valueDone(state)
		}
	}

	// A trailing number or literal is kept only if already valid JSON
	// on its own; prefixes like "tru" or "1e" are dropped.
	if tokenStart >= 0 {
		token := s[tokenStart:]
		if json.Valid([]byte(token)) {
			state = valueDone(state)
		} else {
			out = out[:tokenStart]
		}
	}

	// A dangling comma would make the closers invalid.
	if state == objKey || state == arrValue {
		trimmed := strings.TrimRight(out, " \t\r\n")
		if strings.HasSuffix(trimmed, ",") {
			out = strings.TrimSuffix(trimmed, ",")
			if state == objKey {
				state = objNext
			} else {
				state = arrNext
			}
		}
	}

	switch state {
	case objColon:
		out += ":null"
	case objValue:
		out += "null"
	}

	for len(stack) > 0 {
		if isObjectState(state) {
			out += "}"
		} else {
			out += "]"
		}
		state = valueDone(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}

	return out
}

func valueDone(state containerState) containerState {
	switch state {
	case objValue:
		return objNext
	case arrValue:
		return arrNext
	case topValue:
		return topDone
	}
	return state
}

func isObjectState(state containerState) bool {
	switch state {
	case objKey, objColon, objValue, objNext:
		return true
	}
	return false
}

func isTokenChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c == '+' || c == '-' || c == '.':
		return true
	}
	return false
}
