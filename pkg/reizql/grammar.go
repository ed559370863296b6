package reizql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// reizqlLexer tokenizes ReizQL the way pgraph's internal/dsl/grammar.go
// tokenizes its probabilistic-graph DSL: a flat lexer.Simple rule set fed
// straight into a participle-generated grammar, whitespace elided.
var reizqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[(),=\[\]|&!*]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// grammarMatch is the raw parse of `IDENT '(' [arg (',' arg)*] ')'`.
type grammarMatch struct {
	Pos  lexer.Position
	Name string        `parser:"@Ident"`
	Args []*grammarArg `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
}

// grammarArg is `keyword | positional`.
type grammarArg struct {
	Keyword    *grammarKeyword `parser:"  @@"`
	Positional *grammarValue   `parser:"| @@"`
}

// grammarKeyword is `IDENT '=' value`.
type grammarKeyword struct {
	Key   string        `parser:"@Ident \"=\""`
	Value *grammarValue `parser:"@@"`
}

// grammarValue is the `|`-chain: left-associative, loosest precedence.
type grammarValue struct {
	Pos   lexer.Position
	Terms []*grammarTerm `parser:"@@ ( \"|\" @@ )*"`
}

// grammarTerm is the `&`-chain: left-associative, binds tighter than `|`.
type grammarTerm struct {
	Factors []*grammarFactor `parser:"@@ ( \"&\" @@ )*"`
}

// grammarFactor is `!`-negation, tightest of all, wrapping a primary.
type grammarFactor struct {
	Pos     lexer.Position
	Negated bool            `parser:"@\"!\"?"`
	Primary *grammarPrimary `parser:"@@"`
}

// grammarPrimary is `match | literal | enum | list | logical | wildcard`,
// with `(value)` re-entering the value grammar for grouping.
type grammarPrimary struct {
	Pos      lexer.Position
	Paren    *grammarValue `parser:"  \"(\" @@ \")\""`
	Match    *grammarMatch `parser:"| @@"`
	List     *grammarList  `parser:"| @@"`
	Wildcard bool          `parser:"| @\"*\""`
	String   *string       `parser:"| @String"`
	Int      *int64        `parser:"| @Int"`
	Ident    *string       `parser:"| @Ident"`
}

// grammarList is `'[' [value (',' value)*] ']'`.
type grammarList struct {
	Items []*grammarValue `parser:"\"[\" ( @@ ( \",\" @@ )* )? \"]\""`
}

var reizqlParser = participle.MustBuild[grammarMatch](
	participle.Lexer(reizqlLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)
