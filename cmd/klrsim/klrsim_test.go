package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/crank"
	"github.com/sarchlab/klrsim/trace"
)

// counterImage counts external interrupts in R7 and copies the count to
// port 1.
func counterImage() *loader.Image {
	data := make([]byte, loader.ROMSize)
	copy(data, []byte{
		0x05,       // 000 EN I
		0x04, 0x01, // 001 JMP 0x001
		0x1F,       // 003 INC R7
		0xFF,       // 004 MOV A,R7
		0x39,       // 005 OUTL P1,A
		0x93,       // 006 RETR
	})
	img, err := loader.FromBytes(data)
	Expect(err).NotTo(HaveOccurred())
	return img
}

var _ = Describe("klrsim", func() {
	var (
		img *loader.Image
		out *bytes.Buffer
	)

	BeforeEach(func() {
		img = counterImage()
		out = &bytes.Buffer{}
	})

	newTestSession := func(opts sessionOptions) *session {
		opts.ROM = img
		opts.Log = logr.Discard()
		s, err := newSession(opts)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("session", func() {
		It("should count reset pulses over a run", func() {
			s := newTestSession(sessionOptions{RPM: 1000})

			Expect(s.advance(0.09, 0.01, 0)).To(Succeed())

			Expect(s.signals[crank.SignalReset]).To(Equal(3))
			Expect(s.emu.RegFile().P1).To(Equal(uint8(3)))
		})

		It("should land exactly on the requested duration", func() {
			s := newTestSession(sessionOptions{RPM: 1000})

			Expect(s.advance(0.025, 0.01, 0)).To(Succeed())

			Expect(s.scheduler.Position()).To(Equal(uint64(18333)))
		})

		It("should use the car model without a fixed speed", func() {
			s := newTestSession(sessionOptions{})

			Expect(s.advance(0.1, 0.01, 1)).To(Succeed())

			Expect(s.scheduler.State().Throttle).To(Equal(1.0))
			Expect(s.scheduler.State().RPM).To(BeNumerically(">", 2500))
		})
	})

	Describe("report", func() {
		It("should print engine, chip and trace sections", func() {
			s := newTestSession(sessionOptions{RPM: 1000})
			Expect(s.advance(0.09, 0.01, 0)).To(Succeed())

			rep := s.report("ecu.bin", 0)
			rep.print(out, 60)

			text := out.String()
			Expect(text).To(ContainSubstring("ROM: ecu.bin"))
			Expect(text).To(ContainSubstring("reset=3"))
			Expect(text).To(ContainSubstring("rollover=2"))
			Expect(text).To(ContainSubstring("P1=03"))
			Expect(text).To(ContainSubstring("Decode cache:"))
			Expect(rep.Traces[crank.ChannelP1]).NotTo(BeEmpty())
		})

		It("should encode as JSON and YAML", func() {
			s := newTestSession(sessionOptions{RPM: 1000})
			Expect(s.advance(0.01, 0.01, 0)).To(Succeed())
			rep := s.report("ecu.bin", 0)

			Expect(writeReport(out, rep, "json")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"crank_angle"`))

			out.Reset()
			Expect(writeReport(out, rep, "yaml")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("crank_angle:"))
		})
	})

	Describe("strip", func() {
		It("should mark samples and hold levels between them", func() {
			points := []trace.Point{
				{Cycle: 0, Value: 0},
				{Cycle: 50, Value: 1},
			}

			Expect(strip(points, 100, 10)).To(Equal("|___|-----"))
		})

		It("should render an empty channel as blanks", func() {
			Expect(strip(nil, 100, 4)).To(Equal("    "))
		})
	})

	Describe("sweep", func() {
		It("should run every speed and keep their order", func() {
			cmd := &sweepCmd{
				RPM:      []float64{3000, 1000, 2000},
				Duration: 0.06,
				Step:     0.01,
				Jobs:     2,
			}

			results, err := sweep(context.Background(), cmd, img, crank.DefaultConfig(), &Globals{})

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].RPM).To(Equal(3000.0))
			Expect(results[1].RPM).To(Equal(1000.0))
			Expect(results[0].Resets).To(BeNumerically(">", results[1].Resets))
			Expect(results[1].P1).To(Equal(uint8(results[1].Resets)))
		})

		It("should fail on a non-positive speed", func() {
			cmd := &sweepCmd{RPM: []float64{1000, 0}, Duration: 0.01, Step: 0.01}

			_, err := sweep(context.Background(), cmd, img, crank.DefaultConfig(), &Globals{})

			Expect(err).To(MatchError(ContainSubstring("must be positive")))
		})
	})

	Describe("script", func() {
		var env *scriptEnv

		BeforeEach(func() {
			env = newScriptEnv(out)
			s := newTestSession(sessionOptions{RPM: 1000, OnEvent: env.onEvent})
			env.attach(s)
		})

		AfterEach(func() {
			env.close()
		})

		It("should drive the session and read the chip", func() {
			err := env.L.DoString(`
				local resets = 0
				on_event(function(sig, angle, cycle)
					if sig == "reset" then resets = resets + 1 end
				end)
				local st = advance(0.09, 0)
				expect(resets == 3, "three resets")
				expect(reg(7) == 3, "firmware counted them")
				expect(port(1) == 3)
				expect(st.rpm == 1000)
				print("angle", math.floor(angle()))
			`)

			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(HavePrefix("angle\t"))
		})

		It("should fail the script on a false expectation", func() {
			err := env.L.DoString(`expect(acc() == 1, "acc is one")`)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("acc is one"))
		})

		It("should disassemble and run cycles", func() {
			err := env.L.DoString(`
				local text, size = disasm(1)
				expect(text == "JMP 0x001", text)
				expect(size == 2)
				expect(run_cycles(3) >= 3)
				set_t1(true)
				reset()
				expect(cycles() == 0)
			`)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should finish the advance before raising a handler error", func() {
			err := env.L.DoString(`
				on_event(function(sig) error("boom " .. sig) end)
				local ok, msg = pcall(advance, 0.02, 0)
				expect(not ok, "advance failed")
				expect(string.find(msg, "boom reset") ~= nil, msg)
				expect(cycles() >= 14666, "whole step ran")
				expect(angle() > 0, "crank moved past the dwell")
			`)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject a bad register", func() {
			err := env.L.DoString(`reg(9)`)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("disassemble", func() {
		It("should list addresses, bytes and mnemonics", func() {
			disassemble(out, img.Data[:], 0, 3)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(Equal([]string{
				"000  05     EN I",
				"001  04 01  JMP 0x001",
				"003  1F     INC R7",
			}))
		})
	})

	Describe("Globals", func() {
		It("should load and validate --config", func() {
			dir, err := os.MkdirTemp("", "klrsim")
			Expect(err).NotTo(HaveOccurred())
			defer os.RemoveAll(dir)

			path := filepath.Join(dir, "crank.yaml")
			Expect(os.WriteFile(path, []byte("dwell_end_angle: 20\n"), 0644)).To(Succeed())

			config, err := (&Globals{Config: path}).crankConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(config.DwellEndAngle).To(Equal(20.0))

			Expect(os.WriteFile(path, []byte("dwell_end_angle: 200\n"), 0644)).To(Succeed())
			_, err = (&Globals{Config: path}).crankConfig()
			Expect(err).To(MatchError(ContainSubstring("dwell_end_angle")))
		})
	})
})
