package rules

import (
	"fmt"

	"FloodSentry/internal/config"
	"FloodSentry/internal/model"
)

// Built-in thresholds, applied wherever the config leaves a value at zero.
const (
	defaultMinPackets = 1000

	defaultSYNTCPRatio    = 0.6
	defaultSYNRatio       = 0.7
	defaultSYNHighPPS     = 20000
	defaultSYNCriticalPPS = 100000

	defaultUDPRatio        = 0.8
	defaultUDPHighPPS      = 20000
	defaultUDPCriticalPPS  = 150000
	defaultICMPRatio       = 0.5
	defaultICMPHighPPS     = 10000
	defaultICMPCriticalPPS = 80000
	defaultHTTPHighRPS     = 15000
	defaultHTTPCriticalRPS = 120000

	defaultMVUDPPPS  = 10000
	defaultMVSYNPPS  = 10000
	defaultMVICMPPPS = 5000

	defaultFragRatio  = 0.3
	defaultFragMinPPS = 1000

	defaultSmallAvgSize = 100
	defaultSmallMinPPS  = 10000

	defaultConcRatio        = 0.3
	defaultConcMinAttackPPS = 5000

	defaultBotnetMinSources   = 50
	defaultBotnetMaxPPSPerSrc = 200
	defaultBotnetMinAttackPPS = 1000

	defaultHeavyHitterCount = 10
)

// Rule is one entry of the table: a pure predicate over a window snapshot
// that reports whether it fired, at what severity, and why.
type Rule struct {
	Name  string
	Check func(snap *model.WindowSnapshot) (bool, model.Severity, string)
}

// Verdict is the outcome of evaluating the table over one window.
type Verdict struct {
	Level   model.Severity
	Rules   []string
	Reasons []string
}

// Fired reports whether any rule fired.
func (v *Verdict) Fired() bool {
	return v.Level > model.SeverityNone
}

// Table is an ordered rule set. Evaluation is a pure function of the window
// snapshot: rules run in order, severity only ever rises, and reasons
// accumulate in rule order.
type Table struct {
	minPackets uint64
	rules      []Rule
}

// NewTable builds the rule table from the configured thresholds. Zero values
// select the built-in defaults.
func NewTable(cfg config.RulesConfig) *Table {
	c := withDefaults(cfg)
	return &Table{
		minPackets: c.MinPackets,
		rules: []Rule{
			synRule(c.SYN),
			udpRule(c.UDP),
			icmpRule(c.ICMP),
			httpRule(c.HTTP),
			multiVectorRule(c.MultiVector),
			fragRule(c.Frag),
			smallPacketRule(c.SmallPacket),
			concentrationRule(c.SourceConcentration),
			botnetRule(c.Botnet),
			heavyHitterRule(c.HeavyHitters),
		},
	}
}

// Rules returns the rule names in evaluation order.
func (t *Table) Rules() []string {
	names := make([]string, len(t.rules))
	for i, r := range t.rules {
		names[i] = r.Name
	}
	return names
}

// Evaluate runs the table over one window snapshot. Windows below the
// minimum packet count never fire.
func (t *Table) Evaluate(snap *model.WindowSnapshot) Verdict {
	v := Verdict{Level: model.SeverityNone}
	if snap.Packets < t.minPackets {
		return v
	}
	for _, r := range t.rules {
		fired, level, reason := r.Check(snap)
		if !fired {
			continue
		}
		if level > v.Level {
			v.Level = level
		}
		v.Rules = append(v.Rules, r.Name)
		v.Reasons = append(v.Reasons, reason)
	}
	return v
}

func withDefaults(c config.RulesConfig) config.RulesConfig {
	def := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	if c.MinPackets == 0 {
		c.MinPackets = defaultMinPackets
	}
	def(&c.SYN.TCPRatio, defaultSYNTCPRatio)
	def(&c.SYN.SYNRatio, defaultSYNRatio)
	def(&c.SYN.HighPPS, defaultSYNHighPPS)
	def(&c.SYN.CriticalPPS, defaultSYNCriticalPPS)
	def(&c.UDP.Ratio, defaultUDPRatio)
	def(&c.UDP.HighPPS, defaultUDPHighPPS)
	def(&c.UDP.CriticalPPS, defaultUDPCriticalPPS)
	def(&c.ICMP.Ratio, defaultICMPRatio)
	def(&c.ICMP.HighPPS, defaultICMPHighPPS)
	def(&c.ICMP.CriticalPPS, defaultICMPCriticalPPS)
	def(&c.HTTP.HighPPS, defaultHTTPHighRPS)
	def(&c.HTTP.CriticalPPS, defaultHTTPCriticalRPS)
	def(&c.MultiVector.UDPPPS, defaultMVUDPPPS)
	def(&c.MultiVector.SYNPPS, defaultMVSYNPPS)
	def(&c.MultiVector.ICMPPPS, defaultMVICMPPPS)
	def(&c.Frag.Ratio, defaultFragRatio)
	def(&c.Frag.MinPPS, defaultFragMinPPS)
	def(&c.SmallPacket.MaxAvgSize, defaultSmallAvgSize)
	def(&c.SmallPacket.MinPPS, defaultSmallMinPPS)
	def(&c.SourceConcentration.Ratio, defaultConcRatio)
	def(&c.SourceConcentration.MinAttackPPS, defaultConcMinAttackPPS)
	def(&c.Botnet.MinSources, defaultBotnetMinSources)
	def(&c.Botnet.MaxPPSPerSource, defaultBotnetMaxPPSPerSrc)
	def(&c.Botnet.MinAttackPPS, defaultBotnetMinAttackPPS)
	if c.HeavyHitters.MinCount == 0 {
		c.HeavyHitters.MinCount = defaultHeavyHitterCount
	}
	return c
}

func synRule(c config.SYNRuleConfig) Rule {
	return Rule{
		Name: "syn_flood",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.TCPRatio <= c.TCPRatio || s.SYNRatio <= c.SYNRatio || s.SYNPPS < c.HighPPS {
				return false, model.SeverityNone, ""
			}
			level := model.SeverityHigh
			if s.SYNPPS >= c.CriticalPPS {
				level = model.SeverityCritical
			}
			return true, level, fmt.Sprintf("SYN flood: %.0f SYN pps (%.1f%% of TCP)", s.SYNPPS, s.SYNRatio*100)
		},
	}
}

func udpRule(c config.VolumeRuleConfig) Rule {
	return Rule{
		Name: "udp_flood",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.UDPRatio <= c.Ratio || s.UDPPPS < c.HighPPS {
				return false, model.SeverityNone, ""
			}
			level := model.SeverityHigh
			if s.UDPPPS >= c.CriticalPPS {
				level = model.SeverityCritical
			}
			return true, level, fmt.Sprintf("UDP flood: %.0f UDP pps (%.1f%% of traffic)", s.UDPPPS, s.UDPRatio*100)
		},
	}
}

func icmpRule(c config.VolumeRuleConfig) Rule {
	return Rule{
		Name: "icmp_flood",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.ICMPRatio <= c.Ratio || s.ICMPPPS < c.HighPPS {
				return false, model.SeverityNone, ""
			}
			level := model.SeverityHigh
			if s.ICMPPPS >= c.CriticalPPS {
				level = model.SeverityCritical
			}
			return true, level, fmt.Sprintf("ICMP flood: %.0f ICMP pps", s.ICMPPPS)
		},
	}
}

func httpRule(c config.VolumeRuleConfig) Rule {
	return Rule{
		Name: "http_flood",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.HTTPRPS < c.HighPPS {
				return false, model.SeverityNone, ""
			}
			level := model.SeverityHigh
			if s.HTTPRPS >= c.CriticalPPS {
				level = model.SeverityCritical
			}
			return true, level, fmt.Sprintf("HTTP flood: %.0f requests/s", s.HTTPRPS)
		},
	}
}

func multiVectorRule(c config.MultiVectorRuleConfig) Rule {
	return Rule{
		Name: "multi_vector",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			vectors := 0
			if s.UDPPPS > c.UDPPPS {
				vectors++
			}
			if s.SYNPPS > c.SYNPPS {
				vectors++
			}
			if s.ICMPPPS > c.ICMPPPS {
				vectors++
			}
			if vectors < 2 {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityMedium, fmt.Sprintf("multi-vector: %d vectors active (udp %.0f, syn %.0f, icmp %.0f pps)",
				vectors, s.UDPPPS, s.SYNPPS, s.ICMPPPS)
		},
	}
}

func fragRule(c config.FragRuleConfig) Rule {
	return Rule{
		Name: "frag_anomaly",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.FragRatio <= c.Ratio || s.PPS < c.MinPPS {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityMedium, fmt.Sprintf("fragmentation anomaly: %.1f%% fragmented", s.FragRatio*100)
		},
	}
}

func smallPacketRule(c config.SmallPacketRuleConfig) Rule {
	return Rule{
		Name: "small_packet",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.PPS < c.MinPPS || s.AvgPacketSize == 0 || s.AvgPacketSize >= c.MaxAvgSize {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityMedium, fmt.Sprintf("small packet anomaly: avg %.0f bytes at %.0f pps", s.AvgPacketSize, s.PPS)
		},
	}
}

func concentrationRule(c config.ConcentrationRuleConfig) Rule {
	return Rule{
		Name: "source_concentration",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.AttackPPS < c.MinAttackPPS || len(s.TopSources) == 0 || s.AttackPackets == 0 {
				return false, model.SeverityNone, ""
			}
			share := float64(s.TopSources[0].Count) / float64(s.AttackPackets)
			if share <= c.Ratio {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityMedium, fmt.Sprintf("source concentration: top source %.1f%% of attack traffic", share*100)
		},
	}
}

func botnetRule(c config.BotnetRuleConfig) Rule {
	return Rule{
		Name: "botnet_pattern",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.AttackPPS < c.MinAttackPPS || s.UniqueAttackSources <= c.MinSources {
				return false, model.SeverityNone, ""
			}
			perSource := s.AttackPPS / s.UniqueAttackSources
			if perSource >= c.MaxPPSPerSource {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityMedium, fmt.Sprintf("botnet pattern: %.0f sources, avg %.0f pps/source", s.UniqueAttackSources, perSource)
		},
	}
}

func heavyHitterRule(c config.HeavyHitterRuleConfig) Rule {
	return Rule{
		Name: "heavy_hitters",
		Check: func(s *model.WindowSnapshot) (bool, model.Severity, string) {
			if s.HeavyHitterCount <= c.MinCount {
				return false, model.SeverityNone, ""
			}
			return true, model.SeverityLow, fmt.Sprintf("heavy hitters: %d sources above threshold", s.HeavyHitterCount)
		},
	}
}
