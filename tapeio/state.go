package tapeio

import (
	"encoding/binary"
	"fmt"

	core "github.com/digiac10/ct10emu"
)

var stateMagic = [8]byte{'C', 'T', '1', '0', 'D', 'M', 'P', '1'}

const stateVersion = 6

// encoder accumulates a little-endian byte stream using the same
// offset-bumping append style as the CPU register serializer.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}
func (e *encoder) u16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
func (e *encoder) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}
func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) u8() (uint8, error) {
	if d.off+1 > len(d.buf) {
		return 0, fmt.Errorf("tapeio: truncated state file at offset %d", d.off)
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}
func (d *decoder) boolean() (bool, error) {
	v, err := d.u8()
	return v != 0, err
}
func (d *decoder) u16() (uint16, error) {
	if d.off+2 > len(d.buf) {
		return 0, fmt.Errorf("tapeio: truncated state file at offset %d", d.off)
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v, nil
}
func (d *decoder) u32() (uint32, error) {
	if d.off+4 > len(d.buf) {
		return 0, fmt.Errorf("tapeio: truncated state file at offset %d", d.off)
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}
func (d *decoder) bytesN(n int) ([]byte, error) {
	if d.off+n > len(d.buf) {
		return nil, fmt.Errorf("tapeio: truncated state file at offset %d", d.off)
	}
	v := append([]byte(nil), d.buf[d.off:d.off+n]...)
	d.off += n
	return v, nil
}
func (d *decoder) lengthPrefixed() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	return d.bytesN(int(n))
}

// SaveState renders the full CT-10 machine state into the versioned
// binary snapshot format.
func SaveState(s *core.MachineState) []byte {
	e := &encoder{}
	e.buf = append(e.buf, stateMagic[:]...)
	e.u32(stateVersion)

	e.u16(s.Reg.A.Value)
	e.u16(s.Reg.B.Value)
	e.u16(s.Reg.Q.Value)
	e.u16(s.Reg.X.Value)
	e.u16(s.Reg.C.Value)
	e.u16(s.Reg.MAR.Value)
	e.u16(s.Reg.PAR.Value)
	e.u16(s.Reg.OP.Value)
	e.u16(s.Reg.D.Value)

	e.u8(s.Timing.Distributor)
	e.u8(uint8(s.Timing.Phase))
	e.bool(s.Timing.Acquisition)
	e.bool(s.Mode.Halted)

	e.bool(s.Flags.Carry)
	e.bool(s.Flags.Zero)
	e.bool(s.Flags.Greater)
	e.bool(s.Flags.Less)
	e.bool(s.Flags.AddOverflow)
	e.bool(s.Flags.DivideOverflow)
	e.bool(s.Flags.InstError)

	e.bool(s.Status.Interrupt)
	e.bool(s.Status.Sense)
	e.bool(s.Status.Flag)
	e.bool(s.Status.Wait)

	for _, bus := range []core.Bus{s.Bus.X, s.Bus.Y, s.Bus.Z, s.Bus.F} {
		e.u16(bus.Value)
		e.bool(bus.Driven)
		e.bool(bus.Complemented)
	}

	e.u32(core.MemorySize)
	e.buf = append(e.buf, s.Mem[:]...)

	e.u32(uint32(s.IO.InputPos))
	e.bool(s.IO.Interrupt)
	e.u8(s.IO.LastCommand)
	e.u8(s.IO.Status)
	e.u8(s.IO.SelectedDevice)
	e.bool(s.IO.HexMode)
	e.bool(s.IO.AlphaMode)
	e.u8(uint8(s.IO.TransferMode))
	e.u16(s.IO.TransferAddress)
	e.u16(s.IO.TransferRemaining)
	e.u8(s.IO.WaitCycles)

	e.bytes(s.IO.InputData)
	e.bytes(s.IO.OutputData)

	e.u32(uint32(s.IO.TerminalInputPos))
	e.bytes(s.IO.TerminalInput)
	e.bytes(s.IO.TerminalOutput)
	e.bytes(s.IO.PrinterOutput)

	e.bool(s.Panel.Start)
	e.bool(s.Panel.Stop)
	e.bool(s.Panel.Clear)
	e.bool(s.Panel.LampTest)
	e.bool(s.Panel.Reset)
	e.bool(s.Panel.PowerOn)
	e.bool(s.Panel.KeyPressed)
	e.bool(s.Panel.HasLastKey)
	e.u8(s.Panel.KeyValue)
	e.u8(s.Panel.LastKey)
	e.u16(s.Panel.InputSwitches)
	e.u8(s.Panel.IOMode)
	e.u8(s.Panel.Mode)
	e.bool(s.Panel.MemRead)
	e.bool(s.Panel.MemWrite)
	e.bool(s.Panel.LoadPressed)
	e.u8(uint8(s.Panel.LoadTarget))
	e.bool(s.Panel.Rpt)
	e.bool(s.Panel.Sense)
	e.bool(s.Panel.ErrorInst)
	e.bool(s.Panel.ErrorAdd)
	e.bool(s.Panel.ErrorDiv)
	e.bool(s.Panel.IORead)
	e.bool(s.Panel.IOWrite)
	e.bool(s.Panel.IOIntrp)
	e.bool(s.Panel.IOBlock)

	return e.buf
}

// LoadState parses the versioned binary snapshot format, accepting
// versions 1-6 and reconstructing fields absent from older versions
// (currently only InstError, added in version 2).
func LoadState(data []byte, s *core.MachineState) error {
	if len(data) < len(stateMagic)+4 {
		return fmt.Errorf("tapeio: state file too short")
	}
	for i, b := range stateMagic {
		if data[i] != b {
			return fmt.Errorf("tapeio: invalid state file header")
		}
	}

	d := &decoder{buf: data, off: len(stateMagic)}
	version, err := d.u32()
	if err != nil {
		return err
	}
	if version < 1 || version > stateVersion {
		return fmt.Errorf("tapeio: unsupported state file version %d", version)
	}

	regs := []*core.Register{&s.Reg.A, &s.Reg.B, &s.Reg.Q, &s.Reg.X, &s.Reg.C, &s.Reg.MAR, &s.Reg.PAR, &s.Reg.OP, &s.Reg.D}
	for _, r := range regs {
		v, err := d.u16()
		if err != nil {
			return err
		}
		r.Load(v)
	}

	dist, err := d.u8()
	if err != nil {
		return err
	}
	phase, err := d.u8()
	if err != nil {
		return err
	}
	acq, err := d.boolean()
	if err != nil {
		return err
	}
	halted, err := d.boolean()
	if err != nil {
		return err
	}
	s.Timing.Distributor = dist
	s.Timing.Phase = core.ClockPhase(phase)
	s.Timing.Acquisition = acq
	s.Mode.Halted = halted

	if s.Flags.Carry, err = d.boolean(); err != nil {
		return err
	}
	if s.Flags.Zero, err = d.boolean(); err != nil {
		return err
	}
	if s.Flags.Greater, err = d.boolean(); err != nil {
		return err
	}
	if s.Flags.Less, err = d.boolean(); err != nil {
		return err
	}
	if s.Flags.AddOverflow, err = d.boolean(); err != nil {
		return err
	}
	if s.Flags.DivideOverflow, err = d.boolean(); err != nil {
		return err
	}
	if version >= 2 {
		if s.Flags.InstError, err = d.boolean(); err != nil {
			return err
		}
	} else {
		s.Flags.InstError = false
	}

	if s.Status.Interrupt, err = d.boolean(); err != nil {
		return err
	}
	if s.Status.Sense, err = d.boolean(); err != nil {
		return err
	}
	if s.Status.Flag, err = d.boolean(); err != nil {
		return err
	}
	if s.Status.Wait, err = d.boolean(); err != nil {
		return err
	}

	buses := []*core.Bus{&s.Bus.X, &s.Bus.Y, &s.Bus.Z, &s.Bus.F}
	for _, b := range buses {
		v, err := d.u16()
		if err != nil {
			return err
		}
		driven, err := d.boolean()
		if err != nil {
			return err
		}
		complemented, err := d.boolean()
		if err != nil {
			return err
		}
		if driven {
			b.Drive(v, complemented)
		} else {
			b.Clear()
		}
	}

	memSize, err := d.u32()
	if err != nil {
		return err
	}
	if memSize != core.MemorySize {
		return fmt.Errorf("tapeio: unexpected memory size %d", memSize)
	}
	memBytes, err := d.bytesN(core.MemorySize)
	if err != nil {
		return err
	}
	copy(s.Mem[:], memBytes)

	inputPos, err := d.u32()
	if err != nil {
		return err
	}
	if s.IO.Interrupt, err = d.boolean(); err != nil {
		return err
	}
	if s.IO.LastCommand, err = d.u8(); err != nil {
		return err
	}
	if s.IO.Status, err = d.u8(); err != nil {
		return err
	}
	if s.IO.SelectedDevice, err = d.u8(); err != nil {
		return err
	}
	if s.IO.HexMode, err = d.boolean(); err != nil {
		return err
	}
	if s.IO.AlphaMode, err = d.boolean(); err != nil {
		return err
	}
	tm, err := d.u8()
	if err != nil {
		return err
	}
	s.IO.TransferMode = core.TransferMode(tm)
	if s.IO.TransferAddress, err = d.u16(); err != nil {
		return err
	}
	if s.IO.TransferRemaining, err = d.u16(); err != nil {
		return err
	}
	if s.IO.WaitCycles, err = d.u8(); err != nil {
		return err
	}
	s.IO.InputPos = int(inputPos)

	if s.IO.InputData, err = d.lengthPrefixed(); err != nil {
		return err
	}
	if s.IO.OutputData, err = d.lengthPrefixed(); err != nil {
		return err
	}

	termPos, err := d.u32()
	if err != nil {
		return err
	}
	s.IO.TerminalInputPos = int(termPos)
	if s.IO.TerminalInput, err = d.lengthPrefixed(); err != nil {
		return err
	}
	if s.IO.TerminalOutput, err = d.lengthPrefixed(); err != nil {
		return err
	}
	if s.IO.PrinterOutput, err = d.lengthPrefixed(); err != nil {
		return err
	}

	if s.Panel.Start, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.Stop, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.Clear, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.LampTest, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.Reset, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.PowerOn, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.KeyPressed, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.HasLastKey, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.KeyValue, err = d.u8(); err != nil {
		return err
	}
	if s.Panel.LastKey, err = d.u8(); err != nil {
		return err
	}
	if s.Panel.InputSwitches, err = d.u16(); err != nil {
		return err
	}
	if s.Panel.IOMode, err = d.u8(); err != nil {
		return err
	}
	if s.Panel.Mode, err = d.u8(); err != nil {
		return err
	}
	if s.Panel.MemRead, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.MemWrite, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.LoadPressed, err = d.boolean(); err != nil {
		return err
	}
	lt, err := d.u8()
	if err != nil {
		return err
	}
	s.Panel.LoadTarget = core.LoadTarget(lt)
	if s.Panel.Rpt, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.Sense, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.ErrorInst, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.ErrorAdd, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.ErrorDiv, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.IORead, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.IOWrite, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.IOIntrp, err = d.boolean(); err != nil {
		return err
	}
	if s.Panel.IOBlock, err = d.boolean(); err != nil {
		return err
	}

	return nil
}
