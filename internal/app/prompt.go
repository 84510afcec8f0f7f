package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// confirm asks the operator a yes/no question on stdin. Anything other
// than "y" or "yes" counts as no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
