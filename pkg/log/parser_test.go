package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	swapProgram  = "F1ashSwap1111111111111111111111111111111111"
	tokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

var receipt = []string{
	"Program " + swapProgram + " invoke [1]",
	"Program log: Instruction: Loan",
	"Program " + tokenProgram + " invoke [2]",
	"Program " + tokenProgram + " success",
	"Program log: loan 0: 500 to B, expected back 10002",
	"Program " + swapProgram + " success",
	"Program " + swapProgram + " invoke [1]",
	"Program log: Instruction: Repay",
	"Program " + tokenProgram + " invoke [2]",
	"Program " + tokenProgram + " failed: INSUFFICIENT_FUNDS: balance 5, transfer 502",
	"Program " + swapProgram + " failed: INSUFFICIENT_FUNDS: balance 5, transfer 502",
}

func TestParse(t *testing.T) {
	p := NewParser()

	tests := []struct {
		line    string
		want    LogType
		program string
		height  int
		message string
	}{
		{line: "Program " + swapProgram + " invoke [3]", want: LogTypeInvoke, program: swapProgram, height: 3},
		{line: "Program " + tokenProgram + " success", want: LogTypeSuccess, program: tokenProgram},
		{line: "Program " + swapProgram + " failed: EXPIRED: offer expired", want: LogTypeFailed, program: swapProgram, message: "EXPIRED: offer expired"},
		{line: "Program log: Instruction: Swap", want: LogTypeLog, message: "Instruction: Swap"},
		{line: "Program log: Program X invoke [1]", want: LogTypeLog, message: "Program X invoke [1]"},
		{line: "something else", want: LogTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := p.Parse(tt.line)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.program, got.ProgramID)
			assert.Equal(t, tt.height, got.StackHeight)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.line, got.RawLog)
		})
	}
}

func TestExtractProgramLogs(t *testing.T) {
	logs := NewParser().ExtractProgramLogs(receipt)
	assert.Equal(t, []string{
		"Instruction: Loan",
		"loan 0: 500 to B, expected back 10002",
		"Instruction: Repay",
	}, logs)
}

func TestFailure(t *testing.T) {
	p := NewParser()
	f, ok := p.Failure(receipt)
	require.True(t, ok)
	assert.Equal(t, tokenProgram, f.ProgramID)
	assert.Equal(t, "INSUFFICIENT_FUNDS: balance 5, transfer 502", f.Message)

	_, ok = p.Failure(receipt[:6])
	assert.False(t, ok)
}

func TestFilterByInstructionPath(t *testing.T) {
	p := NewParser()
	assert.Equal(t, []string{"Instruction: Loan", "loan 0: 500 to B, expected back 10002"},
		p.FilterByInstructionPath(receipt, InstructionPath{0}))
	assert.Equal(t, []string{"Instruction: Repay"}, p.FilterByInstructionPath(receipt, InstructionPath{1}))
	assert.Empty(t, p.FilterByInstructionPath(receipt, InstructionPath{0, 0}))
}

func TestWalk_Paths(t *testing.T) {
	lines := []string{
		"Program A invoke [1]",
		"Program B invoke [2]",
		"Program B success",
		"Program B invoke [2]",
		"Program C invoke [3]",
		"Program C success",
		"Program B success",
		"Program A success",
		"Program A invoke [1]",
		"Program A success",
	}
	var invokes []string
	NewParser().Walk(lines, func(path InstructionPath, parsed *ParsedLog) {
		if parsed.Type == LogTypeInvoke {
			invokes = append(invokes, path.String())
		}
	})
	assert.Equal(t, []string{"[0]", "[0, 0]", "[0, 1]", "[0, 1, 0]", "[1]"}, invokes)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, []string{
		"#0 " + swapProgram + " ok",
		"#1 " + swapProgram + " failed: INSUFFICIENT_FUNDS: balance 5, transfer 502",
	}, NewParser().Summary(receipt))
}

func TestInstructionPath(t *testing.T) {
	assert.Equal(t, "[]", InstructionPath{}.String())
	assert.True(t, InstructionPath{1}.IsParentOf(InstructionPath{1, 0}))
	assert.False(t, InstructionPath{1}.IsParentOf(InstructionPath{1}))
	assert.False(t, InstructionPath{2}.IsParentOf(InstructionPath{1, 0}))
	assert.Equal(t, "Failed", LogTypeFailed.String())
}
