package runcfg

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/velisar/rigidmd/pbc"
)

// HCL schema for run-configuration files. Example:
//
//	integrator = "md"
//	dt         = 0.002
//	pbc        = "xyz"
//
//	constraints {
//	  algorithm    = "lincs"
//	  iterations   = 2
//	  order        = 4
//	  max_warnings = 10
//	}
//
//	free_energy { delta_lambda = 0.001 }
type hclRun struct {
	Integrator       *string        `hcl:"integrator,optional"`
	TimeStep         *float64       `hcl:"dt,optional"`
	InitTime         *float64       `hcl:"init_t,optional"`
	PBC              *string        `hcl:"pbc,optional"`
	PressureCoupling *string        `hcl:"pressure_coupling,optional"`
	Pull             *bool          `hcl:"pull,optional"`
	Constraints      *hclConstraint `hcl:"constraints,block"`
	FreeEnergy       *hclFEP        `hcl:"free_energy,block"`
}

type hclConstraint struct {
	Algorithm    *string  `hcl:"algorithm,optional"`
	Iterations   *int     `hcl:"iterations,optional"`
	Order        *int     `hcl:"order,optional"`
	Tolerance    *float64 `hcl:"tolerance,optional"`
	SOR          *bool    `hcl:"sor,optional"`
	FlexibleStep *float64 `hcl:"flexible_step,optional"`
	MaxWarnings  *int     `hcl:"max_warnings,optional"`
}

type hclFEP struct {
	DeltaLambda float64 `hcl:"delta_lambda"`
}

// Load parses a run-configuration file, applying Default() for everything
// the file leaves unset.
func Load(path string) (Params, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Params{}, fmt.Errorf("runcfg: parsing %s: %w", path, diags)
	}
	return decode(file.Body)
}

// Parse decodes run-configuration source from memory, for embedding and
// tests.
func Parse(src []byte, filename string) (Params, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Params{}, fmt.Errorf("runcfg: parsing %s: %w", filename, diags)
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (Params, error) {
	var raw hclRun
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return Params{}, fmt.Errorf("runcfg: decoding: %w", diags)
	}

	p := Default()
	var err error

	if raw.Integrator != nil {
		if p.Integrator, err = ParseIntegrator(*raw.Integrator); err != nil {
			return Params{}, err
		}
	}
	if raw.TimeStep != nil {
		p.TimeStep = *raw.TimeStep
	}
	if raw.InitTime != nil {
		p.InitTime = *raw.InitTime
	}
	if raw.PBC != nil {
		switch *raw.PBC {
		case "none":
			p.PBC = pbc.None
		case "xyz":
			p.PBC = pbc.XYZ
		case "xy":
			p.PBC = pbc.XY
		default:
			return Params{}, ErrBadPBC
		}
	}
	if raw.PressureCoupling != nil {
		if p.PressureCoupling, err = ParsePressureCoupling(*raw.PressureCoupling); err != nil {
			return Params{}, err
		}
	}
	if raw.Pull != nil {
		p.Pull = *raw.Pull
	}
	if c := raw.Constraints; c != nil {
		if c.Algorithm != nil {
			if p.Algorithm, err = ParseAlgorithm(*c.Algorithm); err != nil {
				return Params{}, err
			}
		}
		if c.Iterations != nil {
			p.Iterations = *c.Iterations
		}
		if c.Order != nil {
			p.ProjectionOrder = *c.Order
		}
		if c.Tolerance != nil {
			p.RelaxTolerance = *c.Tolerance
		}
		if c.SOR != nil {
			p.RelaxSOR = *c.SOR
		}
		if c.FlexibleStep != nil {
			p.FlexibleStep = *c.FlexibleStep
		}
		p.MaxWarnings = ResolveMaxWarnings(c.MaxWarnings)
	}
	if raw.FreeEnergy != nil {
		p.FreeEnergy = true
		p.DeltaLambda = raw.FreeEnergy.DeltaLambda
	}

	if err = p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
