// Package posetrack keeps the per-image pose table used while refining poses: one rotation and
// an optional in-plane translation per image, with the rotation optionally held in a
// continuous embedding that callers update in place.
package posetrack

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/so3pose/spatialmath"
	"go.viam.com/so3pose/utils"
)

// EmbeddingType selects how a Tracker stores rotations.
type EmbeddingType int

const (
	// EmbeddingNone stores rotation matrices as given.
	EmbeddingNone EmbeddingType = iota
	// EmbeddingQuaternion stores (w, x, y, z).
	EmbeddingQuaternion
	// EmbeddingS2S2 stores the first two columns of the rotation matrix.
	EmbeddingS2S2
)

// ParseEmbeddingType parses "", "none", "quat" or "s2s2".
func ParseEmbeddingType(s string) (EmbeddingType, error) {
	switch s {
	case "", "none":
		return EmbeddingNone, nil
	case "quat":
		return EmbeddingQuaternion, nil
	case "s2s2":
		return EmbeddingS2S2, nil
	default:
		return EmbeddingNone, errors.Errorf("embedding type %q not recognized", s)
	}
}

func (e EmbeddingType) String() string {
	switch e {
	case EmbeddingNone:
		return "none"
	case EmbeddingQuaternion:
		return "quat"
	case EmbeddingS2S2:
		return "s2s2"
	default:
		return "unknown"
	}
}

// Dim is the length of one rotation embedding, 0 for EmbeddingNone.
func (e EmbeddingType) Dim() int {
	switch e {
	case EmbeddingQuaternion:
		return 4
	case EmbeddingS2S2:
		return 6
	default:
		return 0
	}
}

// Tracker is not safe for concurrent mutation.
type Tracker struct {
	emb    EmbeddingType
	rots   []spatialmath.RotationMatrix
	trans  []r2.Point
	rotEmb [][]float64
}

// New builds a Tracker. trans may be nil when no translations are known; otherwise it must have
// one entry per rotation.
func New(rots []spatialmath.RotationMatrix, trans []r2.Point, emb EmbeddingType) (*Tracker, error) {
	if emb < EmbeddingNone || emb > EmbeddingS2S2 {
		return nil, errors.Errorf("embedding type %d not recognized", emb)
	}
	if trans != nil && len(trans) != len(rots) {
		return nil, utils.NewShapeError("translations", []int{len(rots), 2}, []int{len(trans), 2})
	}
	t := &Tracker{
		emb:  emb,
		rots: append([]spatialmath.RotationMatrix(nil), rots...),
	}
	if trans != nil {
		t.trans = append([]r2.Point{}, trans...)
	}
	if emb != EmbeddingNone {
		t.rotEmb = lo.Map(rots, func(rm spatialmath.RotationMatrix, _ int) []float64 {
			return encode(emb, rm)
		})
	}
	return t, nil
}

// Len is the number of images tracked.
func (t *Tracker) Len() int {
	return len(t.rots)
}

// EmbeddingType returns how rotations are stored.
func (t *Tracker) EmbeddingType() EmbeddingType {
	return t.emb
}

// HasTranslations reports whether translations were provided.
func (t *Tracker) HasTranslations() bool {
	return t.trans != nil
}

// Pose decodes the rotation of image i and returns its translation if there is one.
func (t *Tracker) Pose(i int) (spatialmath.RotationMatrix, r2.Point, bool, error) {
	if err := t.checkIndex(i); err != nil {
		return spatialmath.RotationMatrix{}, r2.Point{}, false, err
	}
	var tran r2.Point
	if t.trans != nil {
		tran = t.trans[i]
	}
	return t.rotation(i), tran, t.trans != nil, nil
}

// Rotations decodes every rotation.
func (t *Tracker) Rotations() []spatialmath.RotationMatrix {
	out := make([]spatialmath.RotationMatrix, t.Len())
	for i := range out {
		out[i] = t.rotation(i)
	}
	return out
}

// Translations returns a copy of the translations, nil if there are none.
func (t *Tracker) Translations() []r2.Point {
	if t.trans == nil {
		return nil
	}
	return append([]r2.Point{}, t.trans...)
}

// Embedding returns a copy of the rotation embedding of image i.
func (t *Tracker) Embedding(i int) ([]float64, error) {
	if t.emb == EmbeddingNone {
		return nil, errors.New("tracker has no rotation embedding")
	}
	if err := t.checkIndex(i); err != nil {
		return nil, err
	}
	return append([]float64(nil), t.rotEmb[i]...), nil
}

// SetEmbedding replaces the rotation embedding of image i. The value need not be normalized;
// it is projected onto SO(3) when decoded.
func (t *Tracker) SetEmbedding(i int, v []float64) error {
	if t.emb == EmbeddingNone {
		return errors.New("tracker has no rotation embedding")
	}
	if err := t.checkIndex(i); err != nil {
		return err
	}
	if len(v) != t.emb.Dim() {
		return utils.NewShapeError(t.emb.String()+" embedding", []int{t.emb.Dim()}, []int{len(v)})
	}
	t.rotEmb[i] = append([]float64(nil), v...)
	return nil
}

// SetRotation replaces the rotation of image i, re-encoding it when an embedding is used.
func (t *Tracker) SetRotation(i int, rm spatialmath.RotationMatrix) error {
	if err := t.checkIndex(i); err != nil {
		return err
	}
	t.rots[i] = rm
	if t.emb != EmbeddingNone {
		t.rotEmb[i] = encode(t.emb, rm)
	}
	return nil
}

// SetTranslation replaces the translation of image i.
func (t *Tracker) SetTranslation(i int, p r2.Point) error {
	if t.trans == nil {
		return errors.New("tracker has no translations")
	}
	if err := t.checkIndex(i); err != nil {
		return err
	}
	t.trans[i] = p
	return nil
}

// ScaleTranslations multiplies every translation by s.
func (t *Tracker) ScaleTranslations(s float64) {
	for i, p := range t.trans {
		t.trans[i] = p.Mul(s)
	}
}

// Subset returns a new Tracker holding the given images, in order, with their current
// (decoded) rotations.
func (t *Tracker) Subset(indices []int) (*Tracker, error) {
	for _, i := range indices {
		if err := t.checkIndex(i); err != nil {
			return nil, err
		}
	}
	rots := lo.Map(indices, func(i, _ int) spatialmath.RotationMatrix { return t.rotation(i) })
	var trans []r2.Point
	if t.trans != nil {
		trans = lo.Map(indices, func(i, _ int) r2.Point { return t.trans[i] })
	}
	return New(rots, trans, t.emb)
}

func (t *Tracker) rotation(i int) spatialmath.RotationMatrix {
	switch t.emb {
	case EmbeddingQuaternion:
		v := t.rotEmb[i]
		return spatialmath.QuatToRotationMatrix(quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]})
	case EmbeddingS2S2:
		return spatialmath.NewS2S2FromSlice(t.rotEmb[i]).RotationMatrix()
	default:
		return t.rots[i]
	}
}

func (t *Tracker) checkIndex(i int) error {
	if i < 0 || i >= t.Len() {
		return errors.Errorf("image index %d out of range [0, %d)", i, t.Len())
	}
	return nil
}

func encode(emb EmbeddingType, rm spatialmath.RotationMatrix) []float64 {
	switch emb {
	case EmbeddingQuaternion:
		q := spatialmath.RotationMatrixToQuat(rm)
		return []float64{q.Real, q.Imag, q.Jmag, q.Kmag}
	case EmbeddingS2S2:
		return spatialmath.RotationMatrixToS2S2(rm).Slice()
	default:
		return nil
	}
}
