package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/hifz/internal/normalize"
)

// styledChunk is a pre-rendered word or space. Whole words are styled at
// once so terminals that shape Arabic see contiguous letters.
type styledChunk struct {
	s       string
	width   int
	isSpace bool
}

type wordRange struct {
	start int
	end   int
}

func findWords(runes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range runes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(runes)})
	}
	return words
}

func chunkText(text string, style lipgloss.Style) []styledChunk {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	words := findWords(runes)
	out := make([]styledChunk, 0, len(words)*2)
	for i, w := range words {
		if i > 0 {
			out = append(out, spaceChunk())
		}
		word := string(runes[w.start:w.end])
		out = append(out, styledChunk{s: style.Render(word), width: runewidth.StringWidth(word)})
	}
	return out
}

// chunkResponse colors each word of response by whether it matches the word
// at the same position of answer.
func chunkResponse(response, answer string) []styledChunk {
	runes := []rune(strings.Join(strings.Fields(response), " "))
	words := findWords(runes)
	want := strings.Fields(normalize.Normalize(answer))
	out := make([]styledChunk, 0, len(words)*2)
	for i, w := range words {
		if i > 0 {
			out = append(out, spaceChunk())
		}
		word := string(runes[w.start:w.end])
		style := incorrectStyle
		if i < len(want) && normalize.Normalize(word) == want[i] {
			style = correctStyle
		}
		out = append(out, styledChunk{s: style.Render(word), width: runewidth.StringWidth(word)})
	}
	return out
}

func spaceChunk() styledChunk {
	return styledChunk{s: " ", width: 1, isSpace: true}
}

func renderChunks(chunks []styledChunk) string {
	var b strings.Builder
	for _, item := range chunks {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapChunks(chunks []styledChunk, width int) string {
	if width <= 0 {
		return renderChunks(chunks)
	}
	var out strings.Builder
	line := make([]styledChunk, 0, len(chunks))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(chunks); {
		item := chunks[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderChunks(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledChunk{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderChunks(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		if item.isSpace && len(line) == 0 {
			i++
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderChunks(line))
	return out.String()
}

func lineWidthOf(line []styledChunk) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledChunk) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
