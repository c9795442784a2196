package compiler

// TokenKind classifies a lexed token.
type TokenKind int

const (
	EOFTok TokenKind = iota
	SymbolTok
	SmallNumberTok // fits the 16-bit target's signed word
	LargeNumberTok
	DQTok  // double-quoted string
	SQTok  // single-quoted text longer than one character: dictionary word
	SepTok // separator; Value is one of the Sep* codes
	DirectiveTok
	StatementTok
	OpcodeTok
	SystemFunTok
	LocalVarTok
	SystemConstTok
	ActionLiteralTok // ##Name
	UErrorTok        // lexing error placeholder
)

var tokenKindNames = [...]string{
	"end of file", "symbol", "number", "number", "string", "dictionary word",
	"separator", "directive", "statement keyword", "opcode", "system function",
	"local variable", "system constant", "action literal", "(error)",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "???"
}

// Token is one lexed unit. Text remains valid until the statement or
// directive in progress completes (see Lexer.ReleaseTokenTexts).
type Token struct {
	Kind     TokenKind
	Value    int32
	Text     string
	Marker   Marker
	SymIndex int    // symbol-table index, or -1
	Context  uint32 // keyword groups enabled when the token was made
	Loc      Loc
}

// Separator codes. The order groups multi-character separators with
// their prefixes; the dispatch grid indexes this table.
const (
	SepArrow     = iota // ->
	SepDArrow           // -->
	SepDec              // --
	SepMinus            // -
	SepInc              // ++
	SepPlus             // +
	SepTimes            // *
	SepDivide           // /
	SepRemainder        // %
	SepLogOr            // ||
	SepArtOr            // |
	SepLogAnd           // &&
	SepArtAnd           // &
	SepLogNot           // ~~
	SepNotEqual         // ~=
	SepArtNot           // ~
	SepCondEqual        // ==
	SepSetEqual         // =
	SepGE               // >=
	SepGreater          // >
	SepLE               // <=
	SepLess             // <
	SepOpenB            // (
	SepCloseB           // )
	SepComma            // ,
	SepPropertyA        // .&
	SepPropertyN        // .#
	SepSuperA           // ..&
	SepSuperN           // ..#
	SepSuper            // ..
	SepProperty         // .
	SepColonColon       // ::
	SepColon            // :
	SepAt               // @
	SepSemicolon        // ;
	SepOpenSB           // [
	SepCloseSB          // ]
	SepOpenBrace        // {
	SepCloseBrace       // }
	SepDollar           // $
	SepNBranch          // ?~
	SepBranch           // ?
	SepHashADollar      // #a$
	SepHashGDollar      // #g$
	SepHashNDollar      // #n$
	SepHashRDollar      // #r$
	SepHashWDollar      // #w$
	SepHashHash         // ##
	SepHash             // #
	NumSeparators
)

var separators = [NumSeparators]string{
	"->", "-->", "--", "-", "++", "+", "*", "/", "%",
	"||", "|", "&&", "&", "~~", "~=", "~", "==", "=",
	">=", ">", "<=", "<", "(", ")", ",",
	".&", ".#", "..&", "..#", "..", ".", "::", ":",
	"@", ";", "[", "]", "{", "}", "$", "?~", "?",
	"#a$", "#g$", "#n$", "#r$", "#w$", "##", "#",
}

// sepGrid is the 256-entry dispatch grid: for each possible first
// character, the index of the first candidate separator and how many
// consecutive table entries share that first character. The lexer
// tries each candidate and keeps the longest match.
var sepGrid [256]struct{ start, count int }

func init() {
	for i := range sepGrid {
		sepGrid[i].start = -1
	}
	for i, s := range separators {
		c := s[0]
		if sepGrid[c].start == -1 {
			sepGrid[c].start = i
		}
		sepGrid[c].count++
	}
}

// Keyword-group enable bits. The surrounding parser switches groups on
// and off so the same identifier can be a directive in one context and
// a plain symbol in another.
const (
	DirectivesEnabled uint32 = 1 << iota
	StatementsEnabled
	OpcodesEnabled
	SystemFunsEnabled
	SystemConstsEnabled
	LocalVarsEnabled
	ConditionsEnabled
	ColonTerminates // inside a switch head, ':' ends the expression
	DontWarnUnused
)

// Directive codes, alphabetical.
const (
	DirAbbreviate = iota
	DirArray
	DirAttribute
	DirClass
	DirConstant
	DirDefault
	DirDictionary
	DirEnd
	DirEndif
	DirExtend
	DirFakeAction
	DirGlobal
	DirIfdef
	DirIffalse
	DirIfndef
	DirIfnot
	DirIftrue
	DirIfv3
	DirIfv5
	DirInclude
	DirLink
	DirLowstring
	DirMessage
	DirNearby
	DirObject
	DirOrigsource
	DirProperty
	DirRelease
	DirReplace
	DirSerial
	DirStatusline
	DirStub
	DirSwitches
	DirSystemFile
	DirTrace
	DirUndef
	DirVerb
	DirVersion
	DirZcharacter
)

var directiveNames = map[string]int{
	"abbreviate": DirAbbreviate, "array": DirArray, "attribute": DirAttribute,
	"class": DirClass, "constant": DirConstant, "default": DirDefault,
	"dictionary": DirDictionary, "end": DirEnd, "endif": DirEndif,
	"extend": DirExtend, "fake_action": DirFakeAction, "global": DirGlobal,
	"ifdef": DirIfdef, "iffalse": DirIffalse, "ifndef": DirIfndef,
	"ifnot": DirIfnot, "iftrue": DirIftrue, "ifv3": DirIfv3, "ifv5": DirIfv5,
	"include": DirInclude, "link": DirLink, "lowstring": DirLowstring,
	"message": DirMessage, "nearby": DirNearby, "object": DirObject,
	"origsource": DirOrigsource, "property": DirProperty,
	"release": DirRelease, "replace": DirReplace, "serial": DirSerial,
	"statusline": DirStatusline, "stub": DirStub, "switches": DirSwitches,
	"system_file": DirSystemFile, "trace": DirTrace, "undef": DirUndef,
	"verb": DirVerb, "version": DirVersion, "zcharacter": DirZcharacter,
}

// Statement keyword codes.
const (
	StBox = iota
	StBreak
	StContinue
	StDo
	StElse
	StFont
	StFor
	StGive
	StIf
	StInversion
	StJump
	StMove
	StNewLine
	StObjectloop
	StPrint
	StPrintRet
	StQuit
	StRead
	StRemove
	StRestore
	StReturn
	StRfalse
	StRtrue
	StSave
	StSpaces
	StString
	StStyle
	StSwitch
	StUntil
	StWhile
	StDefault // 'default' as a switch case, not the directive
)

var statementNames = map[string]int{
	"box": StBox, "break": StBreak, "continue": StContinue, "do": StDo,
	"else": StElse, "font": StFont, "for": StFor, "give": StGive, "if": StIf,
	"inversion": StInversion, "jump": StJump, "move": StMove,
	"new_line": StNewLine, "objectloop": StObjectloop, "print": StPrint,
	"print_ret": StPrintRet, "quit": StQuit, "read": StRead,
	"remove": StRemove, "restore": StRestore, "return": StReturn,
	"rfalse": StRfalse, "rtrue": StRtrue, "save": StSave, "spaces": StSpaces,
	"string": StString, "style": StStyle, "switch": StSwitch,
	"until": StUntil, "while": StWhile, "default": StDefault,
}

// System function codes.
const (
	FnChild = iota
	FnChildren
	FnElder
	FnEldest
	FnIndirect
	FnMetaclass
	FnParent
	FnRandom
	FnSibling
	FnYounger
	FnYoungest
	FnGlk
)

var systemFunNames = map[string]int{
	"child": FnChild, "children": FnChildren, "elder": FnElder,
	"eldest": FnEldest, "indirect": FnIndirect, "metaclass": FnMetaclass,
	"parent": FnParent, "random": FnRandom, "sibling": FnSibling,
	"younger": FnYounger, "youngest": FnYoungest, "glk": FnGlk,
}

// System constants resolved at image-write time; the lexer only needs
// the name set, the values come from the backpatcher.
const (
	ScAdjectivesTable = iota
	ScActionsTable
	ScClassesTable
	ScIdentifiersTable
	ScPreactionsTable
	ScVersionNumber
	ScLargestObject
	ScStringsOffset
	ScCodeOffset
	ScDictParEntries
	ScGrammarTable
	ScDictionaryTable
)

var systemConstNames = map[string]int{
	"adjectives_table": ScAdjectivesTable, "actions_table": ScActionsTable,
	"classes_table": ScClassesTable, "identifiers_table": ScIdentifiersTable,
	"preactions_table": ScPreactionsTable, "version_number": ScVersionNumber,
	"largest_object": ScLargestObject, "strings_offset": ScStringsOffset,
	"code_offset": ScCodeOffset, "dict_par1": ScDictParEntries,
	"grammar_table": ScGrammarTable, "dictionary_table": ScDictionaryTable,
}
