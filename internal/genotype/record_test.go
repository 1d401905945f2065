package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAllele(t *testing.T) {
	tests := []struct {
		genotype string
		wantKind Kind
		wantBase byte
	}{
		{"AA", KindBase, 'A'},
		{"CT", KindBase, 'C'},
		{"TC", KindBase, 'T'},
		{"G", KindBase, 'G'},
		{"--", KindIndel, 0},
		{"-", KindIndel, 0},
		{"DD", KindIndel, 0},
		{"DI", KindIndel, 0},
		{"II", KindIndel, 0},
		{"NN", KindNoCall, 0},
		{"", KindNoCall, 0},
		{"aa", KindOther, 0},
		{"00", KindOther, 0},
		{"XY", KindOther, 0},
	}

	for _, tt := range tests {
		t.Run(tt.genotype, func(t *testing.T) {
			got := ResolveAllele(tt.genotype)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantBase, got.Base)
			assert.Equal(t, tt.wantKind == KindBase, got.IsBase())
		})
	}
}

func TestResolveAllele_HeterozygousTakesFirst(t *testing.T) {
	// The second allele is discarded even when it is the only non-reference one.
	assert.Equal(t, byte('A'), ResolveAllele("AG").Base)
	assert.Equal(t, byte('G'), ResolveAllele("GA").Base)
	assert.Equal(t, KindIndel, ResolveAllele("-A").Kind)
	assert.Equal(t, byte('A'), ResolveAllele("A-").Base)
}

func TestRecord_Allele(t *testing.T) {
	r := &Record{ID: "rs1", Chrom: "22", Pos: 3, Genotype: "TT"}
	assert.Equal(t, Allele{Kind: KindBase, Base: 'T'}, r.Allele())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "base", KindBase.String())
	assert.Equal(t, "indel", KindIndel.String())
	assert.Equal(t, "no_call", KindNoCall.String())
	assert.Equal(t, "other", KindOther.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestNormalizeChrom(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"22", "22"},
		{"chr22", "22"},
		{"CHR22", "22"},
		{"chrX", "X"},
		{"x", "X"},
		{"MT", "MT"},
		{"chrM", "MT"},
		{" 22 ", "22"},
		{"chr", "CHR"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeChrom(tt.in))
		})
	}
}
