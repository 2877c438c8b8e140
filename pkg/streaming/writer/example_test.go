package writer_test

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vnykmshr/backflow/pkg/streaming/operator"
	"github.com/vnykmshr/backflow/pkg/streaming/source"
	"github.com/vnykmshr/backflow/pkg/streaming/writer"
)

func Example() {
	var out bytes.Buffer
	w := writer.New(&out)

	lines := source.Just("first", "second", "third")
	operator.Map(lines, func(s string) []byte {
		return []byte(strings.ToUpper(s) + "\n")
	}).Subscribe(w)

	<-w.Done()
	fmt.Print(out.String())
	fmt.Println(w.Err(), w.Stats().WriteCount)
	// Output:
	// FIRST
	// SECOND
	// THIRD
	// <nil> 3
}
