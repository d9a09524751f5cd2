package core

// MicroOp is one elementary data-path action scheduled at a specific
// (distributor, phase) coordinate. Dispatch over MicroOp is exhaustive;
// see executeMicroOp in execution.go.
type MicroOp uint8

const (
	OpParToMAR MicroOp = iota
	OpMemToZ
	OpZToB
	OpBToOP
	OpParInc

	OpFormEA
	OpAddIndex

	OpAccToY
	OpBToXBus
	OpBToF
	OpFToA
	OpAccToZ
	OpXToZ
	OpQToZ
	OpBToY
	OpYToMem

	OpLoadA
	OpLoadX
	OpLoadC
	OpLoadQ

	OpStoreA
	OpStoreX
	OpStoreQ

	OpLoadANeg
	OpCopyMemPlusOne

	OpAddToF
	OpSubToF
	OpAndOp
	OpIorOp
	OpXorOp

	OpShiftSLA
	OpShiftSRA
	OpShiftSLL
	OpShiftSRL

	OpMultiply
	OpDivide

	OpRAO
	OpRSO

	OpUpdateFlags
	OpUpdateFlagsQ
	OpUpdateFlagsAQ

	OpBranch

	OpSKI
	OpSKS
	OpSKF
	OpFLS
	OpFLC

	OpSenseStatus

	OpIoNoop

	OpHalt

	OpIncX
)

// MicroStep is one (distributor, phase, op) entry in a microcode sequence.
type MicroStep struct {
	Distributor uint8
	Phase       ClockPhase
	Op          MicroOp
}

// Opcode constants, named after the CT-10's 44 documented mnemonics.
const (
	OpcodeSST byte = 0x00
	OpcodeLCI byte = 0x01
	OpcodeLAI byte = 0x02
	OpcodeINX byte = 0x03
	OpcodeSKI byte = 0x08
	OpcodeSKS byte = 0x09
	OpcodeSKF byte = 0x0A
	OpcodeSLA byte = 0x0B
	OpcodeSRA byte = 0x10
	OpcodeOCD byte = 0x11
	OpcodeLXI byte = 0x12
	OpcodeSLL byte = 0x13
	OpcodeSRL byte = 0x18
	OpcodeAND byte = 0x19
	OpcodeIOR byte = 0x1A
	OpcodeXOR byte = 0x1B
	OpcodeFLC byte = 0x28
	OpcodeFLS byte = 0xF8

	PageLDA byte = 0x20
	PageLCC byte = 0x30
	PageLAN byte = 0x38
	PageLDQ byte = 0x40
	PageSTA byte = 0x48
	PageSTX byte = 0x50
	PageSTQ byte = 0x58
	PageADD byte = 0x60
	PageSUB byte = 0x68
	PageMPY byte = 0x70
	PageDIV byte = 0x78
	PageRAO byte = 0x80
	PageRSO byte = 0x88
	PageBUN byte = 0x90
	PageBST byte = 0x98
	PageBSB byte = 0xA0
	PageBPS byte = 0xA8
	PageBZE byte = 0xB0
	PageBNG byte = 0xB8
	PageBNC byte = 0xC0
	PageBXZ byte = 0xC8
	PageWDB byte = 0xD0
	PageMNO byte = 0xD8
	PageRDB byte = 0xE0
	PageRDI byte = 0xE8
	PageMNI byte = 0xF0
)

// AddressingMode names how an instruction's operand byte is interpreted.
type AddressingMode uint8

const (
	AddressingImmediate AddressingMode = iota
	AddressingPaged
)

// Mnemonic describes one entry of the 44-instruction opcode table, shared
// by the microcode table and the program text loader.
type Mnemonic struct {
	Name     string
	Opcode   byte // exact opcode for Immediate; page base for Paged
	Mode     AddressingMode
	Halts    bool // true only for BST
}

// Mnemonics is the authoritative 44-entry opcode table.
var Mnemonics = []Mnemonic{
	{"SST", OpcodeSST, AddressingImmediate, false},
	{"LCI", OpcodeLCI, AddressingImmediate, false},
	{"LAI", OpcodeLAI, AddressingImmediate, false},
	{"INX", OpcodeINX, AddressingImmediate, false},
	{"SKI", OpcodeSKI, AddressingImmediate, false},
	{"SKS", OpcodeSKS, AddressingImmediate, false},
	{"SKF", OpcodeSKF, AddressingImmediate, false},
	{"SLA", OpcodeSLA, AddressingImmediate, false},
	{"SRA", OpcodeSRA, AddressingImmediate, false},
	{"OCD", OpcodeOCD, AddressingImmediate, false},
	{"LXI", OpcodeLXI, AddressingImmediate, false},
	{"SLL", OpcodeSLL, AddressingImmediate, false},
	{"SRL", OpcodeSRL, AddressingImmediate, false},
	{"AND", OpcodeAND, AddressingImmediate, false},
	{"IOR", OpcodeIOR, AddressingImmediate, false},
	{"XOR", OpcodeXOR, AddressingImmediate, false},
	{"FLC", OpcodeFLC, AddressingImmediate, false},
	{"FLS", OpcodeFLS, AddressingImmediate, false},

	{"LDA", PageLDA, AddressingPaged, false},
	{"LCC", PageLCC, AddressingPaged, false},
	{"LAN", PageLAN, AddressingPaged, false},
	{"LDQ", PageLDQ, AddressingPaged, false},
	{"STA", PageSTA, AddressingPaged, false},
	{"STX", PageSTX, AddressingPaged, false},
	{"STQ", PageSTQ, AddressingPaged, false},
	{"ADD", PageADD, AddressingPaged, false},
	{"SUB", PageSUB, AddressingPaged, false},
	{"MPY", PageMPY, AddressingPaged, false},
	{"DIV", PageDIV, AddressingPaged, false},
	{"RAO", PageRAO, AddressingPaged, false},
	{"RSO", PageRSO, AddressingPaged, false},
	{"BUN", PageBUN, AddressingPaged, false},
	{"BST", PageBST, AddressingPaged, true},
	{"BSB", PageBSB, AddressingPaged, false},
	{"BPS", PageBPS, AddressingPaged, false},
	{"BZE", PageBZE, AddressingPaged, false},
	{"BNG", PageBNG, AddressingPaged, false},
	{"BNC", PageBNC, AddressingPaged, false},
	{"BXZ", PageBXZ, AddressingPaged, false},
	{"WDB", PageWDB, AddressingPaged, false},
	{"MNO", PageMNO, AddressingPaged, false},
	{"RDB", PageRDB, AddressingPaged, false},
	{"RDI", PageRDI, AddressingPaged, false},
	{"MNI", PageMNI, AddressingPaged, false},
}

// AcquisitionSequence returns the fixed 5-step instruction-fetch sequence.
func AcquisitionSequence() []MicroStep {
	return []MicroStep{
		{0, CP1, OpParToMAR},
		{0, CP2, OpMemToZ},
		{0, CP3, OpZToB},
		{1, CP1, OpBToOP},
		{1, CP2, OpParInc},
	}
}

func immediateFetch() []MicroStep {
	return []MicroStep{
		{2, CP1, OpParToMAR},
		{2, CP2, OpMemToZ},
		{2, CP3, OpZToB},
		{3, CP1, OpParInc},
	}
}

func addressOnly() []MicroStep {
	return []MicroStep{
		{2, CP1, OpParToMAR},
		{2, CP2, OpMemToZ},
		{2, CP3, OpZToB},
		{3, CP1, OpFormEA},
		{3, CP2, OpAddIndex},
		{3, CP3, OpParInc},
	}
}

func memoryOperand() []MicroStep {
	return append(addressOnly(),
		MicroStep{4, CP2, OpMemToZ},
		MicroStep{4, CP3, OpZToB},
	)
}

func seq(base []MicroStep, tail ...MicroStep) []MicroStep {
	return append(base, tail...)
}

// executionTable is a pure, immutable, eagerly constructed per-opcode
// lookup built once at package init time.
var executionTable [256][]MicroStep

func init() {
	// Immediate/control instructions: exact opcode match, immediate-fetch
	// template plus a short tail.
	executionTable[OpcodeSST] = seq(immediateFetch(), MicroStep{5, CP1, OpSenseStatus})
	executionTable[OpcodeLCI] = seq(immediateFetch(), MicroStep{5, CP1, OpLoadC})
	executionTable[OpcodeLAI] = seq(immediateFetch(), MicroStep{5, CP1, OpLoadA}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeINX] = seq(immediateFetch(), MicroStep{5, CP1, OpIncX})
	executionTable[OpcodeSKI] = seq(immediateFetch(), MicroStep{5, CP1, OpSKI})
	executionTable[OpcodeSKS] = seq(immediateFetch(), MicroStep{5, CP1, OpSKS})
	executionTable[OpcodeSKF] = seq(immediateFetch(), MicroStep{5, CP1, OpSKF})
	executionTable[OpcodeSLA] = seq(immediateFetch(), MicroStep{5, CP1, OpShiftSLA}, MicroStep{5, CP2, OpUpdateFlagsAQ})
	executionTable[OpcodeSRA] = seq(immediateFetch(), MicroStep{5, CP1, OpShiftSRA}, MicroStep{5, CP2, OpUpdateFlagsAQ})
	executionTable[OpcodeOCD] = seq(immediateFetch(), MicroStep{5, CP1, OpIoNoop})
	executionTable[OpcodeLXI] = seq(immediateFetch(), MicroStep{5, CP1, OpLoadX})
	executionTable[OpcodeSLL] = seq(immediateFetch(), MicroStep{5, CP1, OpShiftSLL}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeSRL] = seq(immediateFetch(), MicroStep{5, CP1, OpShiftSRL}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeAND] = seq(immediateFetch(), MicroStep{5, CP1, OpAndOp}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeIOR] = seq(immediateFetch(), MicroStep{5, CP1, OpIorOp}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeXOR] = seq(immediateFetch(), MicroStep{5, CP1, OpXorOp}, MicroStep{5, CP2, OpUpdateFlags})
	executionTable[OpcodeFLC] = seq(immediateFetch(), MicroStep{5, CP1, OpFLC})
	executionTable[OpcodeFLS] = seq(immediateFetch(), MicroStep{5, CP1, OpFLS})

	// Paged memory-operand / address-only instructions: match opcode&0xF8.
	pagedLoad := func(base byte, op MicroOp) {
		for p := base; p < base+8; p++ {
			executionTable[p] = seq(memoryOperand(), MicroStep{5, CP1, op}, MicroStep{5, CP2, OpUpdateFlags})
		}
	}
	pagedAddrOnly := func(base byte, tail ...MicroStep) {
		for p := base; p < base+8; p++ {
			executionTable[p] = seq(addressOnly(), tail...)
		}
	}
	pagedAluMem := func(base byte, op MicroOp, flagsOp MicroOp) {
		for p := base; p < base+8; p++ {
			executionTable[p] = seq(memoryOperand(),
				MicroStep{5, CP1, OpAccToY},
				MicroStep{5, CP2, OpBToXBus},
				MicroStep{5, CP3, op},
				MicroStep{6, CP1, OpFToA},
				MicroStep{6, CP2, flagsOp},
			)
		}
	}

	pagedLoad(PageLDA, OpLoadA)
	pagedAddrOnly(PageLCC, MicroStep{5, CP1, OpCopyMemPlusOne})
	for p := PageLAN; p < PageLAN+8; p++ {
		executionTable[p] = seq(memoryOperand(), MicroStep{5, CP1, OpLoadANeg}, MicroStep{5, CP2, OpUpdateFlags})
	}
	pagedLoad(PageLDQ, OpLoadQ)
	pagedAddrOnly(PageSTA, MicroStep{5, CP1, OpStoreA})
	pagedAddrOnly(PageSTX, MicroStep{5, CP1, OpStoreX})
	pagedAddrOnly(PageSTQ, MicroStep{5, CP1, OpStoreQ})
	pagedAluMem(PageADD, OpAddToF, OpUpdateFlags)
	pagedAluMem(PageSUB, OpSubToF, OpUpdateFlags)
	for p := PageMPY; p < PageMPY+8; p++ {
		executionTable[p] = seq(memoryOperand(), MicroStep{5, CP1, OpMultiply}, MicroStep{5, CP2, OpUpdateFlagsAQ})
	}
	for p := PageDIV; p < PageDIV+8; p++ {
		executionTable[p] = seq(memoryOperand(), MicroStep{5, CP1, OpDivide}, MicroStep{5, CP2, OpUpdateFlagsAQ})
	}
	pagedAddrOnly(PageRAO, MicroStep{5, CP1, OpRAO}, MicroStep{5, CP2, OpUpdateFlags})
	pagedAddrOnly(PageRSO, MicroStep{5, CP1, OpRSO}, MicroStep{5, CP2, OpUpdateFlags})

	// Branch family: all address-only plus the shared BRANCH dispatch.
	for _, base := range []byte{PageBUN, PageBST, PageBSB, PageBPS, PageBZE, PageBNG, PageBNC, PageBXZ} {
		pagedAddrOnly(base, MicroStep{5, CP1, OpBranch})
	}

	// I/O memory family: address-only plus the shared IO_NOOP dispatch,
	// which inspects the opcode to decide which transfer to begin.
	for _, base := range []byte{PageWDB, PageMNO, PageRDB, PageRDI, PageMNI} {
		pagedAddrOnly(base, MicroStep{5, CP1, OpIoNoop})
	}
}

// ExecutionSequence returns the microcode sequence for opcode, or nil if
// the opcode is unimplemented (which the execution engine translates into
// InstError).
func ExecutionSequence(opcode byte) []MicroStep {
	return executionTable[opcode]
}
