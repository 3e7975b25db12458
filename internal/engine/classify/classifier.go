package classify

import (
	"FloodSentry/internal/config"
	"FloodSentry/internal/model"
	"encoding/binary"
	"fmt"
	"net"
)

type maskedNet struct {
	addr uint32
	mask uint32
}

// Classifier tags traffic sources by the configured baseline and attack
// network lists. Attack networks win when the lists overlap.
type Classifier struct {
	baseline []maskedNet
	attack   []maskedNet
}

// NewClassifier parses the configured CIDR lists. Only IPv4 networks are
// accepted.
func NewClassifier(cfg config.ClassifierConfig) (*Classifier, error) {
	baseline, err := parseNets(cfg.BaselineNetworks)
	if err != nil {
		return nil, fmt.Errorf("baseline networks: %w", err)
	}
	attack, err := parseNets(cfg.AttackNetworks)
	if err != nil {
		return nil, fmt.Errorf("attack networks: %w", err)
	}
	return &Classifier{baseline: baseline, attack: attack}, nil
}

func parseNets(cidrs []string) ([]maskedNet, error) {
	nets := make([]maskedNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CIDR '%s': %w", c, err)
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("network '%s' is not IPv4", c)
		}
		mask := net.IP(ipnet.Mask).To4()
		if mask == nil {
			return nil, fmt.Errorf("network '%s' has a non-IPv4 mask", c)
		}
		nets = append(nets, maskedNet{
			addr: binary.BigEndian.Uint32(ip4),
			mask: binary.BigEndian.Uint32(mask),
		})
	}
	return nets, nil
}

// Empty reports whether no networks are configured at all.
func (c *Classifier) Empty() bool {
	return len(c.baseline) == 0 && len(c.attack) == 0
}

// Classify tags an IPv4 source address (host byte order).
func (c *Classifier) Classify(ip uint32) model.Class {
	for _, n := range c.attack {
		if ip&n.mask == n.addr {
			return model.ClassAttack
		}
	}
	for _, n := range c.baseline {
		if ip&n.mask == n.addr {
			return model.ClassBaseline
		}
	}
	return model.ClassUnknown
}
