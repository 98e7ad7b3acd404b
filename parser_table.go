package termemu

// Parser states following the DEC ANSI parser diagram.
type parserState byte

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateOscString
	stateDcsEntry
	stateDcsParam
	stateDcsIntermediate
	stateDcsPassthrough
	stateDcsIgnore
	stateSosPmApcString
	stateCount
)

// Parser actions. Stored as a small bitset so a transition can carry an
// exit action (e.g. dispatch) alongside the state change.
type parserAction uint16

const (
	actionNone parserAction = 0
	actionPrint parserAction = 1 << iota
	actionExecute
	actionCollect
	actionParam
	actionClear
	actionOscStart
	actionOscPut
	actionOscEnd
	actionHook
	actionPut
	actionUnhook
	actionCsiDispatch
	actionEscDispatch
	actionIgnore
)

// tableEntry packs the next state and the action bitset for one
// (state, byte) pair.
type tableEntry struct {
	next   parserState
	action parserAction
}

// transitionTable is the static (state, byte) -> (state, actions) table.
// Built once at init from compact range rules; lookups are O(1).
var transitionTable [stateCount][256]tableEntry

func fill(state parserState, lo, hi int, next parserState, action parserAction) {
	for b := lo; b <= hi; b++ {
		transitionTable[state][b] = tableEntry{next: next, action: action}
	}
}

func put(state parserState, b int, next parserState, action parserAction) {
	transitionTable[state][b] = tableEntry{next: next, action: action}
}

func init() {
	for s := parserState(0); s < stateCount; s++ {
		// Default: consume the byte without effect, stay in state.
		fill(s, 0x00, 0xFF, s, actionIgnore)
	}

	// --- GROUND ---
	fill(stateGround, 0x00, 0x17, stateGround, actionExecute)
	put(stateGround, 0x19, stateGround, actionExecute)
	fill(stateGround, 0x1C, 0x1F, stateGround, actionExecute)
	fill(stateGround, 0x20, 0x7E, stateGround, actionPrint)
	// 0x7F (DEL) ignored. Bytes >= 0x80 are handled by the UTF-8 decoder
	// before the table is consulted.

	// --- ESCAPE ---
	fill(stateEscape, 0x00, 0x17, stateEscape, actionExecute)
	put(stateEscape, 0x19, stateEscape, actionExecute)
	fill(stateEscape, 0x1C, 0x1F, stateEscape, actionExecute)
	fill(stateEscape, 0x20, 0x2F, stateEscapeIntermediate, actionCollect)
	fill(stateEscape, 0x30, 0x4F, stateGround, actionEscDispatch)
	fill(stateEscape, 0x51, 0x57, stateGround, actionEscDispatch)
	put(stateEscape, 0x59, stateGround, actionEscDispatch)
	put(stateEscape, 0x5A, stateGround, actionEscDispatch)
	put(stateEscape, 0x5C, stateGround, actionEscDispatch) // ST
	fill(stateEscape, 0x60, 0x7E, stateGround, actionEscDispatch)
	put(stateEscape, 0x50, stateDcsEntry, actionClear)          // DCS
	put(stateEscape, 0x58, stateSosPmApcString, actionNone)     // SOS
	put(stateEscape, 0x5B, stateCsiEntry, actionClear)          // CSI
	put(stateEscape, 0x5D, stateOscString, actionOscStart)      // OSC
	put(stateEscape, 0x5E, stateSosPmApcString, actionNone)     // PM
	put(stateEscape, 0x5F, stateSosPmApcString, actionNone)     // APC

	// --- ESCAPE INTERMEDIATE ---
	fill(stateEscapeIntermediate, 0x00, 0x17, stateEscapeIntermediate, actionExecute)
	put(stateEscapeIntermediate, 0x19, stateEscapeIntermediate, actionExecute)
	fill(stateEscapeIntermediate, 0x1C, 0x1F, stateEscapeIntermediate, actionExecute)
	fill(stateEscapeIntermediate, 0x20, 0x2F, stateEscapeIntermediate, actionCollect)
	fill(stateEscapeIntermediate, 0x30, 0x7E, stateGround, actionEscDispatch)

	// --- CSI ENTRY ---
	fill(stateCsiEntry, 0x00, 0x17, stateCsiEntry, actionExecute)
	put(stateCsiEntry, 0x19, stateCsiEntry, actionExecute)
	fill(stateCsiEntry, 0x1C, 0x1F, stateCsiEntry, actionExecute)
	fill(stateCsiEntry, 0x20, 0x2F, stateCsiIntermediate, actionCollect)
	fill(stateCsiEntry, 0x30, 0x39, stateCsiParam, actionParam)
	put(stateCsiEntry, 0x3A, stateCsiParam, actionParam)
	put(stateCsiEntry, 0x3B, stateCsiParam, actionParam)
	fill(stateCsiEntry, 0x3C, 0x3F, stateCsiParam, actionCollect) // private markers
	fill(stateCsiEntry, 0x40, 0x7E, stateGround, actionCsiDispatch)

	// --- CSI PARAM ---
	fill(stateCsiParam, 0x00, 0x17, stateCsiParam, actionExecute)
	put(stateCsiParam, 0x19, stateCsiParam, actionExecute)
	fill(stateCsiParam, 0x1C, 0x1F, stateCsiParam, actionExecute)
	fill(stateCsiParam, 0x30, 0x39, stateCsiParam, actionParam)
	put(stateCsiParam, 0x3A, stateCsiParam, actionParam)
	put(stateCsiParam, 0x3B, stateCsiParam, actionParam)
	fill(stateCsiParam, 0x3C, 0x3F, stateCsiIgnore, actionNone)
	fill(stateCsiParam, 0x20, 0x2F, stateCsiIntermediate, actionCollect)
	fill(stateCsiParam, 0x40, 0x7E, stateGround, actionCsiDispatch)

	// --- CSI INTERMEDIATE ---
	fill(stateCsiIntermediate, 0x00, 0x17, stateCsiIntermediate, actionExecute)
	put(stateCsiIntermediate, 0x19, stateCsiIntermediate, actionExecute)
	fill(stateCsiIntermediate, 0x1C, 0x1F, stateCsiIntermediate, actionExecute)
	fill(stateCsiIntermediate, 0x20, 0x2F, stateCsiIntermediate, actionCollect)
	fill(stateCsiIntermediate, 0x30, 0x3F, stateCsiIgnore, actionNone)
	fill(stateCsiIntermediate, 0x40, 0x7E, stateGround, actionCsiDispatch)

	// --- CSI IGNORE ---
	fill(stateCsiIgnore, 0x00, 0x17, stateCsiIgnore, actionExecute)
	put(stateCsiIgnore, 0x19, stateCsiIgnore, actionExecute)
	fill(stateCsiIgnore, 0x1C, 0x1F, stateCsiIgnore, actionExecute)
	fill(stateCsiIgnore, 0x40, 0x7E, stateGround, actionNone)

	// --- OSC STRING ---
	// Control bytes inside OSC are discarded; BEL terminates (xterm).
	fill(stateOscString, 0x20, 0x7F, stateOscString, actionOscPut)
	put(stateOscString, 0x07, stateGround, actionOscEnd)

	// --- DCS ENTRY ---
	fill(stateDcsEntry, 0x20, 0x2F, stateDcsIntermediate, actionCollect)
	fill(stateDcsEntry, 0x30, 0x39, stateDcsParam, actionParam)
	put(stateDcsEntry, 0x3A, stateDcsIgnore, actionNone)
	put(stateDcsEntry, 0x3B, stateDcsParam, actionParam)
	fill(stateDcsEntry, 0x3C, 0x3F, stateDcsParam, actionCollect)
	fill(stateDcsEntry, 0x40, 0x7E, stateDcsPassthrough, actionHook)

	// --- DCS PARAM ---
	fill(stateDcsParam, 0x30, 0x39, stateDcsParam, actionParam)
	put(stateDcsParam, 0x3B, stateDcsParam, actionParam)
	put(stateDcsParam, 0x3A, stateDcsIgnore, actionNone)
	fill(stateDcsParam, 0x3C, 0x3F, stateDcsIgnore, actionNone)
	fill(stateDcsParam, 0x20, 0x2F, stateDcsIntermediate, actionCollect)
	fill(stateDcsParam, 0x40, 0x7E, stateDcsPassthrough, actionHook)

	// --- DCS INTERMEDIATE ---
	fill(stateDcsIntermediate, 0x20, 0x2F, stateDcsIntermediate, actionCollect)
	fill(stateDcsIntermediate, 0x30, 0x3F, stateDcsIgnore, actionNone)
	fill(stateDcsIntermediate, 0x40, 0x7E, stateDcsPassthrough, actionHook)

	// --- DCS PASSTHROUGH ---
	fill(stateDcsPassthrough, 0x00, 0x17, stateDcsPassthrough, actionPut)
	put(stateDcsPassthrough, 0x19, stateDcsPassthrough, actionPut)
	fill(stateDcsPassthrough, 0x1C, 0x1F, stateDcsPassthrough, actionPut)
	fill(stateDcsPassthrough, 0x20, 0x7E, stateDcsPassthrough, actionPut)

	// --- DCS IGNORE, SOS/PM/APC ---
	// Everything is consumed until ESC or CAN/SUB; handled by the anywhere
	// rules in Parser.step.
}
