// Package textsim implements Ratcliff/Obershelp matching over word tokens.
//
// The longest common block is chosen with a fixed tie-break (earliest in a,
// then earliest in b) and the two sides are matched recursively, so the
// result depends only on the inputs.
package textsim

import (
	"sort"
	"strings"
)

type Block struct {
	A, B, Size int
}

type OpTag string

const (
	OpEqual   OpTag = "equal"
	OpReplace OpTag = "replace"
	OpDelete  OpTag = "delete"
	OpInsert  OpTag = "insert"
)

// Opcode says how a[I1:I2] turns into b[J1:J2].
type Opcode struct {
	Tag    OpTag
	I1, I2 int
	J1, J2 int
}

// Tokens lower-cases s and splits it on whitespace.
func Tokens(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Ratio returns 2*M/(len(a)+len(b)), M being the number of tokens covered
// by matching blocks. Two empty inputs are identical (1.0).
func Ratio(a, b []string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	m := 0
	for _, blk := range MatchingBlocks(a, b) {
		m += blk.Size
	}
	return 2 * float64(m) / float64(total)
}

// MatchingBlocks returns the non-overlapping matching blocks sorted by
// position, adjacent blocks merged. The list is not terminated by a sentinel.
func MatchingBlocks(a, b []string) []Block {
	b2j := make(map[string][]int, len(b))
	for j, tok := range b {
		b2j[tok] = append(b2j[tok], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	var blocks []Block
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		blk := longestMatch(a, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if blk.Size == 0 {
			continue
		}
		blocks = append(blocks, blk)
		if s.alo < blk.A && s.blo < blk.B {
			queue = append(queue, span{s.alo, blk.A, s.blo, blk.B})
		}
		if blk.A+blk.Size < s.ahi && blk.B+blk.Size < s.bhi {
			queue = append(queue, span{blk.A + blk.Size, s.ahi, blk.B + blk.Size, s.bhi})
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].A == blocks[j].A {
			return blocks[i].B < blocks[j].B
		}
		return blocks[i].A < blocks[j].A
	})

	merged := make([]Block, 0, len(blocks))
	for _, blk := range blocks {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.A+last.Size == blk.A && last.B+last.Size == blk.B {
				last.Size += blk.Size
				continue
			}
		}
		merged = append(merged, blk)
	}
	return merged
}

func longestMatch(a []string, b2j map[string][]int, alo, ahi, blo, bhi int) Block {
	best := Block{A: alo, B: blo}
	// j2len[j] is the length of the match ending at a[i-1], b[j].
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > best.Size {
				best = Block{A: i - k + 1, B: j - k + 1, Size: k}
			}
		}
		j2len = next
	}
	return best
}

// Opcodes describes how to turn a into b.
func Opcodes(a, b []string) []Opcode {
	var out []Opcode
	i, j := 0, 0
	blocks := append(MatchingBlocks(a, b), Block{A: len(a), B: len(b)})
	for _, blk := range blocks {
		var tag OpTag
		switch {
		case i < blk.A && j < blk.B:
			tag = OpReplace
		case i < blk.A:
			tag = OpDelete
		case j < blk.B:
			tag = OpInsert
		}
		if tag != "" {
			out = append(out, Opcode{Tag: tag, I1: i, I2: blk.A, J1: j, J2: blk.B})
		}
		i, j = blk.A+blk.Size, blk.B+blk.Size
		if blk.Size > 0 {
			out = append(out, Opcode{Tag: OpEqual, I1: blk.A, I2: i, J1: blk.B, J2: j})
		}
	}
	return out
}
