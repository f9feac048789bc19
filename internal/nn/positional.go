package nn

import (
	"fmt"
	"math"

	"github.com/spot-ml/spot/internal/parallel"
	"github.com/spot-ml/spot/internal/tensor"
)

// SinePositionalEncoding produces the 2D sinusoidal position embedding used
// by detection transformers. Positions are measured against each image's
// true (unpadded) extent: the encoder counts valid cells along each axis,
// normalizes the counts to [0, 2*pi], and evaluates sine/cosine at
// geometrically spaced frequencies. Half the channels encode the vertical
// position, half the horizontal.
//
// Because positions derive from the padding mask rather than raw indices,
// two images of different sizes in the same batch get comparable encodings.
type SinePositionalEncoding[B tensor.Backend] struct {
	embedDim    int
	numPosFeats int
	temperature float64
	backend     B
	pool        parallel.Config
}

// positionEps guards the normalization against images with zero valid cells
// along an axis; such rows encode as position 0 rather than NaN.
const positionEps = 1e-6

// NewSinePositionalEncoding creates an encoder producing embedDim channels.
// embedDim must be even since channels split equally between the two axes.
// The standard temperature is 10000.
func NewSinePositionalEncoding[B tensor.Backend](embedDim int, temperature float64, backend B) *SinePositionalEncoding[B] {
	if embedDim <= 0 || embedDim%2 != 0 {
		panic(fmt.Sprintf("SinePositionalEncoding: embed_dim must be positive and even, got %d", embedDim))
	}
	if temperature <= 0 {
		panic(fmt.Sprintf("SinePositionalEncoding: temperature must be positive, got %v", temperature))
	}

	// Few but heavy iterations: one per batch item, each filling embedDim
	// channel planes.
	pool := parallel.DefaultConfig()
	pool.MinChunkSize = 1

	return &SinePositionalEncoding[B]{
		embedDim:    embedDim,
		numPosFeats: embedDim / 2,
		temperature: temperature,
		backend:     backend,
		pool:        pool,
	}
}

// Encode maps a [batch, h, w] padding mask (true = padded) to position
// embeddings [batch, embed_dim, h, w]. The output is finite for any mask,
// including fully padded images.
func (p *SinePositionalEncoding[B]) Encode(mask *tensor.Tensor[bool, B]) *tensor.Tensor[float32, B] {
	shape := mask.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("SinePositionalEncoding.Encode: expected [batch, h, w] mask, got shape %v", shape))
	}
	batch, h, w := shape[0], shape[1], shape[2]

	// dim_t[k] = temperature^(2*(k/2) / num_pos_feats); consecutive sin/cos
	// channel pairs share a frequency.
	dimT := make([]float64, p.numPosFeats)
	for k := range dimT {
		dimT[k] = math.Pow(p.temperature, float64(2*(k/2))/float64(p.numPosFeats))
	}

	maskData := mask.Data()
	out := tensor.Zeros[float32](tensor.Shape{batch, p.embedDim, h, w}, p.backend)
	outData := out.Data()

	// Batch items touch disjoint mask and output regions.
	parallel.For(batch, func(n int) {
		base := n * h * w
		yEmbed := make([]float64, h*w)
		xEmbed := make([]float64, h*w)

		// Running count of valid cells down each column and along each row.
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				valid := 0.0
				if !maskData[base+i*w+j] {
					valid = 1.0
				}
				if i == 0 {
					yEmbed[i*w+j] = valid
				} else {
					yEmbed[i*w+j] = yEmbed[(i-1)*w+j] + valid
				}
				if j == 0 {
					xEmbed[i*w+j] = valid
				} else {
					xEmbed[i*w+j] = xEmbed[i*w+j-1] + valid
				}
			}
		}

		// Normalize by the final cumulative count so positions span [0, 2*pi]
		// over the valid region regardless of image size.
		for i := 0; i < h; i++ {
			rowTotal := xEmbed[i*w+w-1] + positionEps
			for j := 0; j < w; j++ {
				colTotal := yEmbed[(h-1)*w+j] + positionEps
				yEmbed[i*w+j] = yEmbed[i*w+j] / colTotal * 2 * math.Pi
				xEmbed[i*w+j] = xEmbed[i*w+j] / rowTotal * 2 * math.Pi
			}
		}

		// Channels [0, numPosFeats) encode y, [numPosFeats, embedDim) encode
		// x; even channel indices take sine, odd take cosine.
		for k := 0; k < p.numPosFeats; k++ {
			yChan := ((n*p.embedDim + k) * h) * w
			xChan := ((n*p.embedDim + p.numPosFeats + k) * h) * w
			for i := 0; i < h; i++ {
				for j := 0; j < w; j++ {
					py := yEmbed[i*w+j] / dimT[k]
					px := xEmbed[i*w+j] / dimT[k]
					if k%2 == 0 {
						outData[yChan+i*w+j] = float32(math.Sin(py))
						outData[xChan+i*w+j] = float32(math.Sin(px))
					} else {
						outData[yChan+i*w+j] = float32(math.Cos(py))
						outData[xChan+i*w+j] = float32(math.Cos(px))
					}
				}
			}
		}
	}, p.pool)

	return out
}

// EmbedDim returns the number of output channels.
func (p *SinePositionalEncoding[B]) EmbedDim() int {
	return p.embedDim
}

// QueryEmbedding is the table of learned object queries. Each of the
// numQueries rows is a candidate detection slot the decoder refines into a
// prediction; the table is position-like state added to decoder inputs, not
// produced from image content.
type QueryEmbedding[B tensor.Backend] struct {
	weight     *Parameter[B] // [num_queries, embed_dim]
	numQueries int
	embedDim   int
	backend    B
}

// NewQueryEmbedding creates numQueries learned queries of width embedDim,
// initialized from the standard normal distribution.
func NewQueryEmbedding[B tensor.Backend](numQueries, embedDim int, backend B) *QueryEmbedding[B] {
	if numQueries <= 0 || embedDim <= 0 {
		panic(fmt.Sprintf("QueryEmbedding: counts must be positive, got queries=%d dim=%d", numQueries, embedDim))
	}

	weight := NewParameter("weight", Normal(1.0, tensor.Shape{numQueries, embedDim}, backend))

	return &QueryEmbedding[B]{
		weight:     weight,
		numQueries: numQueries,
		embedDim:   embedDim,
		backend:    backend,
	}
}

// Expand tiles the query table across a batch, producing the sequence-first
// tensor [num_queries, batch, embed_dim] the decoder consumes.
func (q *QueryEmbedding[B]) Expand(batch int) *tensor.Tensor[float32, B] {
	if batch <= 0 {
		panic(fmt.Sprintf("QueryEmbedding.Expand: batch must be positive, got %d", batch))
	}
	return q.weight.Tensor().
		Unsqueeze(1).
		Expand(tensor.Shape{q.numQueries, batch, q.embedDim})
}

// NumQueries returns the number of query slots.
func (q *QueryEmbedding[B]) NumQueries() int {
	return q.numQueries
}

// Weight returns the underlying [num_queries, embed_dim] parameter.
func (q *QueryEmbedding[B]) Weight() *Parameter[B] {
	return q.weight
}

// Parameters returns the embedding table.
func (q *QueryEmbedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{q.weight}
}
