package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes nodes as text blocks, one parameter per line:
//
//	polymesh
//	{
//	 name box
//	 nsides 1 1 UINT 4
//	 declare Cd uniform RGB
//	 Cd 1 1 RGB 1 0 0
//	}
func Dump(w io.Writer, nodes []*Node) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		fmt.Fprintf(bw, "%s\n{\n name %s\n", n.typ, quote(n.name))
		for _, p := range n.Declared() {
			fmt.Fprintf(bw, " declare %s %s\n", p, n.decls[p])
		}
		for _, p := range n.Params() {
			if p == "name" {
				continue
			}
			fmt.Fprintf(bw, " %s %s\n", p, formatValue(n.params[p]))
		}
		bw.WriteString("}\n\n")
	}
	return bw.Flush()
}

func formatValue(v Value) string {
	if v.Array != nil {
		a := v.Array
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d %d %s", a.NumElements, a.NumKeys, a.Type)
		for _, s := range arrayStrings(a) {
			sb.WriteByte(' ')
			sb.WriteString(s)
		}
		return sb.String()
	}
	switch v.Type {
	case TypeInt:
		return strconv.Itoa(int(v.Int))
	case TypeUInt, TypeByte:
		return strconv.FormatUint(uint64(v.UInt), 10)
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeString:
		return quote(v.String)
	case TypeNode:
		if v.Node == nil {
			return "NULL"
		}
		return quote(v.Node.name)
	default:
		return joinFloats(v.Floats)
	}
}

func arrayStrings(a *Array) []string {
	var out []string
	switch {
	case a.Type == TypeByte:
		for _, x := range a.Bytes {
			out = append(out, strconv.Itoa(int(x)))
		}
	case a.Type == TypeInt:
		for _, x := range a.Ints {
			out = append(out, strconv.Itoa(int(x)))
		}
	case a.Type == TypeUInt:
		for _, x := range a.UInts {
			out = append(out, strconv.FormatUint(uint64(x), 10))
		}
	case a.Type == TypeBool:
		for _, x := range a.Bools {
			out = append(out, strconv.FormatBool(x))
		}
	case a.Type == TypeString:
		for _, x := range a.Strings {
			out = append(out, quote(x))
		}
	default:
		return []string{joinFloats(a.Floats)}
	}
	return out
}

func joinFloats(fs []float32) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	return strconv.Quote(s)
}
