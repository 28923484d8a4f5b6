package command

import "strings"

// Tag markers of the structured command mini-language embedded in actor
// replies. These are a wire contract with the remote actor's prompting and
// must be matched byte for byte.
const (
	fileOpen  = "[FILE:"
	fileClose = "[/FILE]"
	runOpen   = "[RUN]"
	runClose  = "[/RUN]"
	gitOpen   = "[GIT:"
	gitClose  = "[/GIT]"
	doneOpen  = "[DONE]"
	doneClose = "[/DONE]"
)

// Parse extracts typed commands from a block of free-form reply text using
// four independent delimiter-pair scans. The output is grouped by type in
// the fixed order file, run, git, done, regardless of textual position:
// the remote actor's prompting assumes this ordering. An empty slice means
// the reply contained no recognized blocks.
func Parse(reply string) []Command {
	var cmds []Command

	for _, b := range scanArgBlocks(reply, fileOpen, fileClose) {
		// Only the path argument is trimmed; file content is verbatim.
		cmds = append(cmds, Command{
			Kind:    KindFile,
			Path:    strings.TrimSpace(b.arg),
			Content: b.body,
		})
	}

	for _, body := range scanBlocks(reply, runOpen, runClose) {
		cmds = append(cmds, Command{
			Kind: KindRun,
			Cmd:  strings.TrimSpace(body),
		})
	}

	for _, b := range scanArgBlocks(reply, gitOpen, gitClose) {
		cmds = append(cmds, Command{
			Kind:    KindGit,
			Action:  strings.TrimSpace(b.arg),
			Message: strings.TrimSpace(b.body),
		})
	}

	if i := strings.Index(reply, doneOpen); i >= 0 {
		rest := reply[i+len(doneOpen):]
		summary := rest
		if j := strings.Index(rest, doneClose); j >= 0 {
			summary = rest[:j]
		}
		// Exactly one done command, no matter how many markers appear.
		cmds = append(cmds, Command{
			Kind:    KindDone,
			Summary: strings.TrimSpace(summary),
		})
	}

	return cmds
}

type argBlock struct {
	arg  string
	body string
}

// scanArgBlocks finds all non-overlapping blocks of the form
// <open><arg>]<body><closing>. Unterminated blocks are skipped.
func scanArgBlocks(text, open, closing string) []argBlock {
	var blocks []argBlock
	for {
		i := strings.Index(text, open)
		if i < 0 {
			return blocks
		}
		rest := text[i+len(open):]
		j := strings.Index(rest, "]")
		if j < 0 {
			return blocks
		}
		arg := rest[:j]
		rest = rest[j+1:]
		k := strings.Index(rest, closing)
		if k < 0 {
			return blocks
		}
		blocks = append(blocks, argBlock{arg: arg, body: rest[:k]})
		text = rest[k+len(closing):]
	}
}

// scanBlocks finds all non-overlapping blocks of the form
// <open><body><closing>. Unterminated blocks are skipped.
func scanBlocks(text, open, closing string) []string {
	var blocks []string
	for {
		i := strings.Index(text, open)
		if i < 0 {
			return blocks
		}
		rest := text[i+len(open):]
		j := strings.Index(rest, closing)
		if j < 0 {
			return blocks
		}
		blocks = append(blocks, rest[:j])
		text = rest[j+len(closing):]
	}
}
