// Command rv64sim loads a user-mode RV64I ELF image and runs it to
// completion, following the teacher's cmd/vm and cmd/interp driver shape:
// stdlib flag parsing, log.Fatal on bad usage or failure, and an optional
// verbose trace. There is no single-step mode.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"rv64sim/internal/console"
	"rv64sim/internal/csr"
	"rv64sim/internal/elfload"
	"rv64sim/internal/gpr"
	"rv64sim/internal/memory"
	"rv64sim/pkg/rv64"
)

const (
	firstFreePPN  = 1 // ppn 0 reserved, unused
	stackTopVA    = uint64(0x7ffffff000)
	mmioConsoleVA = uint64(0x4000000000)

	// Offsets within the console's MMIO page. The guest writes OutReg and
	// the Status bits it owns, and reads InReg and the Status bits the
	// driver owns; installConsole's block hook is the only thing that
	// moves bytes between this page and the *console.Console.
	mmioConsoleInReg  = mmioConsoleVA
	mmioConsoleOutReg = mmioConsoleVA + 4
	mmioConsoleStatus = mmioConsoleVA + 8
)

func main() {
	log.SetFlags(0)
	filename := flag.String("f", "", "ELF file to run")
	verbose := flag.Bool("v", false, "trace each executed instruction")
	stackPages := flag.Int("stack", 16, "stack size in pages")
	mode := flag.String("mode", "sv39", "translation mode: bare, sv39, sv48, sv57")
	useTTY := flag.Bool("tty", false, "attach an interactive console over TCP")
	flag.Parse()

	if *filename == "" {
		log.Fatal("usage: rv64sim -f <elf-file> [-mode bare|sv39|sv48|sv57] [-stack N] [-v] [-tty]")
	}

	satpMode, err := parseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}

	data, err := os.ReadFile(*filename)
	if err != nil {
		log.Fatal(err)
	}

	phys := memory.NewPhysMemory()
	hart := rv64.NewHart(phys, memory.PrivUser)

	if *verbose {
		hart.SetLogger(log.Default())
	}

	entry, sp, err := load(phys, hart, data, satpMode, *stackPages)
	if err != nil {
		log.Fatal(err)
	}
	hart.GPRFile().Write(gpr.SP, sp)

	if *useTTY {
		con, err := console.Accept()
		if err != nil {
			log.Fatal(err)
		}
		defer con.Close()
		installConsole(hart, phys, con)
	}

	st := hart.Simulate(entry)
	if !st.IsOK() {
		log.Fatalf("rv64sim: simulation halted with %s at pc=%#x icount=%d", st, hart.PC, hart.Icount)
	}

	exitCode := hart.GPRFile().Read32(gpr.A7)
	log.Printf("rv64sim: exited, icount=%d a7=%d", hart.Icount, exitCode)
	os.Exit(int(int32(exitCode)))
}

func parseMode(s string) (csr.Mode, error) {
	switch s {
	case "bare":
		return csr.Bare, nil
	case "sv39":
		return csr.Sv39, nil
	case "sv48":
		return csr.Sv48, nil
	case "sv57":
		return csr.Sv57, nil
	default:
		return csr.Bare, modeError(s)
	}
}

type modeError string

func (m modeError) Error() string { return "rv64sim: unknown translation mode " + string(m) }

// load installs the page table for satpMode, loads the ELF image through
// the mapper, maps a stack, and wires SATP into the hart. It returns the
// entry PC and the initial stack pointer.
func load(phys *memory.PhysMemory, hart *rv64.Hart, data []byte, satpMode csr.Mode, stackPages int) (uint64, uint64, error) {
	mapper := memory.NewMapper(phys, satpMode.Levels(), firstFreePPN)

	entry, err := elfload.LoadErr(data, mapper)
	if err != nil {
		return 0, 0, err
	}
	sp, st := elfload.MapStack(mapper, stackTopVA, stackPages)
	if !st.IsOK() {
		return 0, 0, statusError(st)
	}

	if satpMode != csr.Bare {
		hart.WriteSatp(csr.Satp{Mode: satpMode, PPN: mapper.RootPPN()})
	}
	return entry, sp, nil
}

func statusError(st interface{ String() string }) error {
	return &statusErr{st.String()}
}

type statusErr struct{ s string }

func (e *statusErr) Error() string { return "rv64sim: " + e.s }

// installConsole backs the physical page at mmioConsoleVA with RAM for the
// console and registers a block hook that polls it between blocks: the
// guest's OutReg/Status writes to the page are copied out to con and flushed
// by con.Poll, and the InReg/Status con.Poll produces are copied back in.
// No page-table entry is installed for the page, so the guest reaches it
// only when translation is bare (identity). This keeps the engine itself
// free of any device knowledge — Hart only ever calls an opaque BlockHook.
func installConsole(hart *rv64.Hart, phys *memory.PhysMemory, con *console.Console) {
	phys.AddRAMPage(mmioConsoleVA)

	hart.SetBlockHook(func() {
		outReg, _, st := phys.Read32(mmioConsoleOutReg)
		if !st.IsOK() {
			return
		}
		statusReg, _, st := phys.Read32(mmioConsoleStatus)
		if !st.IsOK() {
			return
		}
		con.OutReg = outReg
		con.Status = statusReg

		if err := con.Poll(); err != nil {
			if errors.Is(err, console.ErrDetach) {
				log.Printf("rv64sim: console detached: %v", err)
			}
			return
		}

		phys.Write32(mmioConsoleInReg, con.InReg)
		phys.Write32(mmioConsoleStatus, con.Status)
	})
}
