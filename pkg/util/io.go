package util

import (
	"bufio"
	"io"
	"strings"
)

// ReadLine reads one line without the trailing newline. io.EOF is only returned when nothing was read.
func ReadLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func Fields(s string) []string {
	return strings.Fields(s)
}
