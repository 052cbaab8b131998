package crank_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/klrsim/timing/crank"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "crank-config")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("should validate the defaults", func() {
		config := crank.DefaultConfig()

		Expect(config.Validate()).To(Succeed())
		Expect(config.ResetAction).To(Equal(crank.ActionInterrupt))
		Expect(config.DwellStartAction).To(Equal(crank.ActionT1High))
		Expect(config.DwellEndAction).To(Equal(crank.ActionT1Low))
		Expect(config.Timing.ClockRateHz).To(Equal(uint64(733333)))
	})

	DescribeTable("validation failures",
		func(mutate func(*crank.Config), message string) {
			config := crank.DefaultConfig()
			mutate(config)
			Expect(config.Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("unknown action", func(c *crank.Config) { c.ResetAction = "boom" }, "reset_action"),
		Entry("boundary past rollover", func(c *crank.Config) { c.DwellEndAngle = 95 }, "dwell_end_angle"),
		Entry("boundary at rollover", func(c *crank.Config) { c.DwellEndAngle = 90 }, "dwell_end_angle"),
		Entry("boundary at window start", func(c *crank.Config) { c.ResetAngle = -90 }, "reset_angle"),
		Entry("start outside window", func(c *crank.Config) { c.StartAngle = 100 }, "start_angle"),
		Entry("out of order", func(c *crank.Config) { c.DwellStartAngle = -85 }, "dwell_start_angle"),
		Entry("missing timing", func(c *crank.Config) { c.Timing = nil }, "timing"),
		Entry("zero clock", func(c *crank.Config) { c.Timing.ClockRateHz = 0 }, "clock_rate_hz"),
	)

	It("should load YAML on top of the defaults", func() {
		path := filepath.Join(tempDir, "crank.yaml")
		Expect(os.WriteFile(path, []byte(
			"dwell_start_angle: -40\nreset_action: t0_high\ntiming:\n  clock_rate_hz: 1000000\n",
		), 0644)).To(Succeed())

		config, err := crank.LoadConfig(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(config.DwellStartAngle).To(Equal(-40.0))
		Expect(config.ResetAction).To(Equal(crank.ActionT0High))
		Expect(config.Timing.ClockRateHz).To(Equal(uint64(1000000)))
		Expect(config.DwellEndAngle).To(Equal(10.0))
		Expect(config.Validate()).To(Succeed())
	})

	It("should round-trip through JSON and YAML files", func() {
		config := crank.DefaultConfig()
		config.RolloverAngle = 80
		config.RolloverAction = crank.ActionT0Low

		for _, name := range []string{"crank.json", "crank.yml"} {
			path := filepath.Join(tempDir, name)
			Expect(config.SaveConfig(path)).To(Succeed())

			loaded, err := crank.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(config, loaded)).To(BeEmpty(), name)
		}
	})

	It("should fail on a missing file", func() {
		_, err := crank.LoadConfig(filepath.Join(tempDir, "absent.json"))
		Expect(err).To(MatchError(ContainSubstring("failed to read crank config file")))
	})

	It("should deep-copy the timing", func() {
		config := crank.DefaultConfig()
		clone := config.Clone()
		clone.Timing.ClockRateHz = 1

		Expect(config.Timing.ClockRateHz).To(Equal(uint64(733333)))
	})

	Describe("Signal", func() {
		It("should encode by name", func() {
			data, err := json.Marshal(crank.Event{Signal: crank.SignalDwellEnd, Angle: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"signal":"dwell_end"`))

			var ev crank.Event
			Expect(json.Unmarshal(data, &ev)).To(Succeed())
			Expect(ev.Signal).To(Equal(crank.SignalDwellEnd))
		})

		It("should reject unknown names", func() {
			var sig crank.Signal
			Expect(sig.UnmarshalText([]byte("spark"))).To(HaveOccurred())
			Expect(crank.Signal(9).String()).To(Equal("Signal(9)"))
		})
	})
})
