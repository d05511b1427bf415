package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks for confirmation before destructive operations.
type Prompter struct {
	reader *bufio.Reader
}

func NewPrompter() *Prompter {
	return NewPrompterFrom(os.Stdin)
}

func NewPrompterFrom(r io.Reader) *Prompter {
	return &Prompter{reader: bufio.NewReader(r)}
}

func (p *Prompter) ConfirmAction(action, target string) bool {
	fmt.Printf("\nConfirm running %s for %s (y/N): ", action, target)

	input, err := p.reader.ReadString('\n')
	if err != nil {
		return false
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}
