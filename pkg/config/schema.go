package config

import (
	"fmt"

	"github.com/aerynos/carve/pkg/sizing"
	"github.com/aerynos/carve/pkg/strategy"
)

// hclDocument is the root structure of a strategy document.
type hclDocument struct {
	Strategies []*hclStrategy `hcl:"strategy,block"`
}

// hclStrategy is one labeled strategy block.
type hclStrategy struct {
	Name        string     `hcl:"name,label"`
	Inherits    string     `hcl:"inherits,optional"`
	Description string     `hcl:"description,optional"`
	Steps       []*hclStep `hcl:"step,block"`
}

// hclStep is one labeled step block. All attributes are optional at the
// syntax level; translateStep enforces what each step kind requires, so a
// missing attribute reports the step it belongs to rather than a bare
// decoder diagnostic.
type hclStep struct {
	Kind    string `hcl:"kind,label"`
	Name    string `hcl:"name,optional"`
	ID      string `hcl:"id,optional"`
	Disk    string `hcl:"disk,optional"`
	Type    string `hcl:"type,optional"`
	Role    string `hcl:"role,optional"`
	MinSize string `hcl:"min_size,optional"`
	MaxSize string `hcl:"max_size,optional"`
}

// translateStrategy converts a decoded strategy block into the engine's
// intermediate representation.
func translateStrategy(hs *hclStrategy) (*strategy.Strategy, error) {
	s := &strategy.Strategy{
		Name:        hs.Name,
		Parent:      hs.Inherits,
		Description: hs.Description,
	}
	for i, step := range hs.Steps {
		translated, err := translateStep(step)
		if err != nil {
			return nil, fmt.Errorf("strategy %q step %d: %w", hs.Name, i, err)
		}
		s.Steps = append(s.Steps, translated)
	}
	return s, nil
}

// translateStep converts one step block into its IR variant.
func translateStep(hs *hclStep) (strategy.Step, error) {
	switch strategy.StepKind(hs.Kind) {
	case strategy.StepKindFindDisk:
		return translateFindDisk(hs)
	case strategy.StepKindCreatePartitionTable:
		return translateCreatePartitionTable(hs)
	case strategy.StepKindCreatePartition:
		return translateCreatePartition(hs)
	case strategy.StepKindFindPartition:
		return translateFindPartition(hs)
	default:
		return nil, fmt.Errorf("unknown step kind %q", hs.Kind)
	}
}

func translateFindDisk(hs *hclStep) (strategy.Step, error) {
	if hs.Name == "" {
		return nil, fmt.Errorf("find-disk requires a name attribute")
	}
	constraints, err := translateConstraint(hs)
	if err != nil {
		return nil, err
	}
	return strategy.FindDisk{
		Name:        hs.Name,
		Constraints: constraints,
	}, nil
}

func translateCreatePartitionTable(hs *hclStep) (strategy.Step, error) {
	if hs.Disk == "" {
		return nil, fmt.Errorf("create-partition-table requires a disk attribute")
	}
	tableType, err := strategy.ParseTableType(hs.Type)
	if err != nil {
		return nil, err
	}
	return strategy.CreatePartitionTable{
		Disk: hs.Disk,
		Type: tableType,
	}, nil
}

func translateCreatePartition(hs *hclStep) (strategy.Step, error) {
	if hs.Disk == "" {
		return nil, fmt.Errorf("create-partition requires a disk attribute")
	}
	if hs.ID == "" {
		return nil, fmt.Errorf("create-partition requires an id attribute")
	}

	role, err := strategy.ParseRole(hs.Role)
	if err != nil {
		return nil, err
	}

	typeGUID := ""
	if hs.Type != "" {
		typeGUID, err = strategy.ParsePartitionTypeGUID(hs.Type)
		if err != nil {
			return nil, err
		}
	}

	constraints, err := translateConstraint(hs)
	if err != nil {
		return nil, err
	}

	return strategy.CreatePartition{
		Disk:        hs.Disk,
		ID:          hs.ID,
		Role:        role,
		TypeGUID:    typeGUID,
		Constraints: constraints,
	}, nil
}

func translateFindPartition(hs *hclStep) (strategy.Step, error) {
	if hs.Disk == "" {
		return nil, fmt.Errorf("find-partition requires a disk attribute")
	}
	if hs.ID == "" {
		return nil, fmt.Errorf("find-partition requires an id attribute")
	}
	if hs.Role == "" && hs.Type == "" {
		return nil, fmt.Errorf("find-partition requires a role or type attribute to match on")
	}

	role, err := strategy.ParseRole(hs.Role)
	if err != nil {
		return nil, err
	}

	typeGUID := ""
	if hs.Type != "" {
		typeGUID, err = strategy.ParsePartitionTypeGUID(hs.Type)
		if err != nil {
			return nil, err
		}
	}

	return strategy.FindPartition{
		Disk:     hs.Disk,
		ID:       hs.ID,
		Role:     role,
		TypeGUID: typeGUID,
	}, nil
}

// translateConstraint parses the min_size/max_size attribute pair. A step
// that carves or selects by size must declare at least a minimum.
func translateConstraint(hs *hclStep) (sizing.Constraint, error) {
	if hs.MinSize == "" {
		return sizing.Constraint{}, fmt.Errorf("a min_size attribute is required")
	}
	min, err := sizing.ParseQuantity(hs.MinSize)
	if err != nil {
		return sizing.Constraint{}, fmt.Errorf("min_size: %w", err)
	}

	var max sizing.Quantity
	if hs.MaxSize != "" {
		max, err = sizing.ParseQuantity(hs.MaxSize)
		if err != nil {
			return sizing.Constraint{}, fmt.Errorf("max_size: %w", err)
		}
	}

	return sizing.NewConstraint(min, max)
}
