package wmo

// Handler is the visitor the DDSInterpreter drives while walking a data
// descriptor sequence. Each of the four codecs (uncompressed BUFR decode,
// compressed BUFR decode, BUFR encode, CREX decode/encode) implements
// Handler once; the interpreter owns all descriptor-stream bookkeeping
// (D-code expansion, replication, C-modifier state, bitmap targets) and
// calls back into Handler only for the actual bit/character I/O (spec
// section 9, "visitor pattern ... a single function taking a handler
// object with a small closed set of callbacks").
type Handler interface {
	// Subset returns the subset the interpreter should track positions
	// against. Uncompressed codecs return the subset currently being
	// visited; compressed BUFR always returns subset 0 since structure is
	// shared across subsets.
	Subset() *Subset

	// Element handles one resolved B descriptor. If targetPos is >= 0, the
	// interpreter has determined (via an active bitmap over a block-33
	// descriptor) that this value is an attribute of Subset().At(targetPos)
	// rather than a new appended variable; Element must attach it there
	// instead of appending. state is passed through read-only except for
	// any associated-field bookkeeping the handler itself owns.
	Element(info *Varinfo, state *InterpreterState, targetPos int) error

	// SubstitutedValue handles a C23255 opcode: read/write a value with
	// the same Varinfo as Subset().At(targetPos), and attach it as an
	// attribute of that same variable (spec section 4.4, C23255 row).
	SubstitutedValue(info *Varinfo, targetPos int) error

	// ReplicationCount reads (decode) or supplies (encode) the delayed
	// replication count described by info (a B31* code), appending the
	// count itself to Subset() as a special (non-eligible) variable: it is
	// structural bookkeeping, not a candidate target for a bitmap.
	ReplicationCount(info *Varinfo) (int, error)

	// BitmapEntries reads (decode) or supplies (encode) a data-present
	// bitmap's n raw '+'/'-' bytes, and appends the bitmap variable itself
	// to Subset() as a special (non-eligible) variable. The Varinfo used to
	// store it is single-use and built by the implementation (see
	// BitmapVarinfo), not looked up in a TableSet.
	BitmapEntries(n int) ([]byte, error)

	// CharData handles C05yyy raw character data of n bytes, appending it
	// to Subset() as a special variable.
	CharData(code Varcode, n int) error

	// AssociatedFieldSignificance reads (decode) or supplies (encode) the
	// B31021 value that gives meaning to a just-activated C04yyy
	// associated field. It does not append to Subset(); original bit
	// streams transmit it as a genuine element, so implementations that
	// need it appended should do so themselves.
	AssociatedFieldSignificance(info *Varinfo) (int, error)
}
