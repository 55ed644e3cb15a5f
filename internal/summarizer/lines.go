package summarizer

import "strings"

// LineWriter regroups arbitrary chunks into newline-terminated lines.
type LineWriter struct {
	buf  strings.Builder
	emit func(line string) error
}

func NewLineWriter(emit func(line string) error) *LineWriter {
	return &LineWriter{emit: emit}
}

// Write buffers chunk and emits every line it completes, terminator included.
func (w *LineWriter) Write(chunk string) error {
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			w.buf.WriteString(chunk)
			return nil
		}

		w.buf.WriteString(chunk[:i+1])
		chunk = chunk[i+1:]

		line := w.buf.String()
		w.buf.Reset()

		if err := w.emit(line); err != nil {
			return err
		}
	}
}

// Flush emits a trailing partial line, terminating it.
func (w *LineWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	line := w.buf.String() + "\n"
	w.buf.Reset()

	return w.emit(line)
}

// Buffered is the length of the pending partial line.
func (w *LineWriter) Buffered() int {
	return w.buf.Len()
}
