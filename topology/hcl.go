package topology

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// HCL schema for topology files. Example:
//
//	constraint_params {
//	  length_a = 0.1
//	  length_b = 0.1
//	}
//	settle_params {
//	  doh = 0.09572
//	  dhh = 0.15139
//	}
//
//	molecule "SOL" {
//	  masses = [15.9994, 1.008, 1.008]
//	  groups = [0, 3]
//	  settle {
//	    param = 0
//	    atoms = [0, 1, 2]
//	  }
//	}
//
//	block {
//	  molecule = "SOL"
//	  count    = 216
//	}
type hclTopology struct {
	ConstraintParams []hclConstraintParams `hcl:"constraint_params,block"`
	SettleParams     []hclSettleParams     `hcl:"settle_params,block"`
	Molecules        []hclMolecule         `hcl:"molecule,block"`
	Blocks           []hclBlock            `hcl:"block,block"`
}

type hclConstraintParams struct {
	LengthA float64 `hcl:"length_a"`
	LengthB float64 `hcl:"length_b"`
}

type hclSettleParams struct {
	DOH float64 `hcl:"doh"`
	DHH float64 `hcl:"dhh"`
}

type hclMolecule struct {
	Name        string          `hcl:"name,label"`
	Masses      []float64       `hcl:"masses"`
	Groups      []int           `hcl:"groups,optional"`
	Constraints []hclConstraint `hcl:"constraint,block"`
	Settles     []hclSettle     `hcl:"settle,block"`
}

type hclConstraint struct {
	Param  int   `hcl:"param"`
	Atoms  []int `hcl:"atoms"`
	NoComm bool  `hcl:"nocomm,optional"`
}

type hclSettle struct {
	Param int   `hcl:"param"`
	Atoms []int `hcl:"atoms"`
}

type hclBlock struct {
	Molecule string `hcl:"molecule"`
	Count    int    `hcl:"count"`
}

// LoadHCL parses a topology file and returns the validated Topology.
func LoadHCL(path string) (*Topology, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("topology: parsing %s: %w", path, diags)
	}
	return decodeHCL(file.Body)
}

// ParseHCL parses topology source from memory, for embedding and tests.
func ParseHCL(src []byte, filename string) (*Topology, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("topology: parsing %s: %w", filename, diags)
	}
	return decodeHCL(file.Body)
}

func decodeHCL(body hcl.Body) (*Topology, error) {
	var raw hclTopology
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("topology: decoding: %w", diags)
	}

	t := &Topology{}
	for _, p := range raw.ConstraintParams {
		t.ConstraintParams = append(t.ConstraintParams, ConstraintParams(p))
	}
	for _, p := range raw.SettleParams {
		t.SettleParams = append(t.SettleParams, SettleParams(p))
	}

	byName := make(map[string]int, len(raw.Molecules))
	for _, m := range raw.Molecules {
		mt := MoleculeType{Name: m.Name, Groups: m.Groups}
		for _, mass := range m.Masses {
			mt.Atoms = append(mt.Atoms, Atom{Mass: mass})
		}
		for _, c := range m.Constraints {
			if len(c.Atoms) != 2 {
				return nil, fmt.Errorf("topology: molecule %q: constraint needs 2 atoms, got %d: %w",
					m.Name, len(c.Atoms), ErrBadAtomIndex)
			}
			con := Constraint{Param: c.Param, A: c.Atoms[0], B: c.Atoms[1]}
			if c.NoComm {
				mt.ConstraintsNoComm = append(mt.ConstraintsNoComm, con)
			} else {
				mt.Constraints = append(mt.Constraints, con)
			}
		}
		for _, s := range m.Settles {
			if len(s.Atoms) != 3 {
				return nil, fmt.Errorf("topology: molecule %q: settle needs 3 atoms, got %d: %w",
					m.Name, len(s.Atoms), ErrBadAtomIndex)
			}
			mt.Settles = append(mt.Settles, Settle{
				Param: s.Param, O: s.Atoms[0], H1: s.Atoms[1], H2: s.Atoms[2],
			})
		}
		byName[m.Name] = len(t.Types)
		t.Types = append(t.Types, mt)
	}

	for _, b := range raw.Blocks {
		ti, ok := byName[b.Molecule]
		if !ok {
			return nil, fmt.Errorf("topology: block %q: %w", b.Molecule, ErrUnknownMolecule)
		}
		t.Blocks = append(t.Blocks, Block{Type: ti, Count: b.Count})
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
