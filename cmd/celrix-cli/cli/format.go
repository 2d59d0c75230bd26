package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/celrix/celrix-go/wire"
)

// formatValue renders a response the way interactive key-value shells do:
//
//	OK
//	(nil)
//	(integer) 42
//	"value"
//	(error) no such key
//	1) "a"
//	2) "b"
func formatValue(v wire.Value) string {
	var b strings.Builder
	writeValue(&b, v, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func writeValue(b *strings.Builder, v wire.Value, indent int) {
	switch val := v.(type) {
	case wire.Status:
		b.WriteString(color.GreenString("%s", string(val)))
	case wire.Error:
		b.WriteString(color.RedString("(error) %s", string(val)))
	case wire.Integer:
		b.WriteString(color.CyanString("(integer) %d", int64(val)))
	case wire.Bulk:
		b.WriteString(strconv.Quote(string(val)))
	case wire.Array:
		if len(val) == 0 {
			b.WriteString(color.YellowString("(empty array)"))
			break
		}
		width := len(strconv.Itoa(len(val)))
		for i, item := range val {
			if i > 0 {
				b.WriteString(strings.Repeat(" ", indent))
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(prefix)
			writeValue(b, item, indent+len(prefix))
			if i < len(val)-1 {
				b.WriteByte('\n')
			}
		}
	default:
		b.WriteString(color.YellowString("(nil)"))
	}
}

func printOK(format string, args ...any) string {
	return color.GreenString(format, args...)
}

func printErr(format string, args ...any) string {
	return color.RedString(format, args...)
}
