// Package genotype provides genotyping-array call parsing functionality.
package genotype

import "strings"

// Record represents a single genotype call from a 23andMe-style raw data file.
type Record struct {
	ID       string // Call identifier (e.g., rs ID or internal i-number)
	Chrom    string // Chromosome name as written in the file (e.g., "22")
	Pos      int64  // 1-based genomic position
	Genotype string // 1-2 symbols from A,C,G,T,-,D,I,N (e.g., "AG", "--", "DI")
}

// Allele resolves the haploid allele for this call.
func (r *Record) Allele() Allele {
	return ResolveAllele(r.Genotype)
}

// Kind classifies a resolved allele.
type Kind uint8

// Allele kinds. Only KindBase is ever written into a sequence.
const (
	KindOther  Kind = iota // any symbol outside the array alphabet
	KindBase               // A, C, G or T
	KindIndel              // '-' (deletion), 'D' or 'I'
	KindNoCall             // 'N' or empty genotype
)

var kindNames = [...]string{"other", "base", "indel", "no_call"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Allele is the haploid symbol resolved from a diploid call.
// Base is only meaningful when Kind is KindBase.
type Allele struct {
	Kind Kind
	Base byte
}

// IsBase returns true if the allele is one of A, C, G, T.
func (a Allele) IsBase() bool {
	return a.Kind == KindBase
}

// ResolveAllele collapses a genotype call to a single allele by taking its
// first symbol. Heterozygous calls keep the first listed allele regardless
// of which one matches the reference.
func ResolveAllele(genotype string) Allele {
	if genotype == "" {
		return Allele{Kind: KindNoCall}
	}
	return decodeSymbol(genotype[0])
}

func decodeSymbol(c byte) Allele {
	switch c {
	case 'A', 'C', 'G', 'T':
		return Allele{Kind: KindBase, Base: c}
	case '-', 'D', 'I':
		return Allele{Kind: KindIndel}
	case 'N':
		return Allele{Kind: KindNoCall}
	}
	return Allele{Kind: KindOther}
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
// "chrM" and "MT" are both returned as "MT".
func NormalizeChrom(chrom string) string {
	c := strings.TrimSpace(chrom)
	if len(c) > 3 && strings.EqualFold(c[:3], "chr") {
		c = c[3:]
	}
	c = strings.ToUpper(c)
	if c == "M" {
		return "MT"
	}
	return c
}
