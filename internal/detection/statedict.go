package detection

import (
	"fmt"

	"github.com/spot-ml/spot/internal/nn"
	"github.com/spot-ml/spot/internal/tensor"
)

// StateDict returns every model parameter keyed by a stable dotted path,
// e.g. "transformer.encoder.layers.0.self_attn.wq.weight". The returned raw
// tensors alias model memory, so writing into them updates the model.
func (m *DETR[B]) StateDict() map[string]*tensor.RawTensor {
	dict := make(map[string]*tensor.RawTensor)

	addParam(dict, "query_embed.weight", m.queryEmbed.Weight())
	if m.inputProj != nil {
		addParam(dict, "input_proj.weight", m.inputProj.Weight())
		addParam(dict, "input_proj.bias", m.inputProj.Bias())
	}

	addLinear(dict, "class_embed", m.heads.ClassHead)
	for i, layer := range m.heads.BoxHead.Layers() {
		addLinear(dict, fmt.Sprintf("bbox_embed.layers.%d", i), layer)
	}

	for i, layer := range m.transformer.Encoder.Layers {
		prefix := fmt.Sprintf("transformer.encoder.layers.%d", i)
		addAttention(dict, prefix+".self_attn", layer.SelfAttn)
		addNorm(dict, prefix+".norm1", layer.Norm1)
		addNorm(dict, prefix+".norm2", layer.Norm2)
		addFFN(dict, prefix+".ffn", layer.FFN)
	}

	for i, layer := range m.transformer.Decoder.Layers {
		prefix := fmt.Sprintf("transformer.decoder.layers.%d", i)
		addAttention(dict, prefix+".self_attn", layer.SelfAttn)
		addAttention(dict, prefix+".cross_attn", layer.CrossAttn)
		addNorm(dict, prefix+".norm1", layer.Norm1)
		addNorm(dict, prefix+".norm2", layer.Norm2)
		addNorm(dict, prefix+".norm3", layer.Norm3)
		addFFN(dict, prefix+".ffn", layer.FFN)
	}
	addNorm(dict, "transformer.decoder.norm", m.transformer.Decoder.Norm)

	return dict
}

// LoadStateDict copies checkpoint tensors into the model parameters. The
// load is strict: every model parameter must be present, no extra keys are
// tolerated, and shapes and dtypes must match exactly.
func (m *DETR[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	native := m.StateDict()

	for name := range stateDict {
		if _, ok := native[name]; !ok {
			return fmt.Errorf("unexpected parameter %q", name)
		}
	}

	for name, dst := range native {
		src, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("missing parameter %q", name)
		}
		if !src.Shape().Equal(dst.Shape()) {
			return fmt.Errorf("%s: shape mismatch: model %v, checkpoint %v", name, dst.Shape(), src.Shape())
		}
		if src.DType() != tensor.Float32 {
			return fmt.Errorf("%s: dtype mismatch: expected float32, got %v", name, src.DType())
		}
		copy(dst.AsFloat32(), src.AsFloat32())
	}

	return nil
}

func addParam[B tensor.Backend](dict map[string]*tensor.RawTensor, name string, p *nn.Parameter[B]) {
	dict[name] = p.Tensor().Raw()
}

func addLinear[B tensor.Backend](dict map[string]*tensor.RawTensor, prefix string, l *nn.Linear[B]) {
	for name, raw := range l.StateDict() {
		dict[prefix+"."+name] = raw
	}
}

func addNorm[B tensor.Backend](dict map[string]*tensor.RawTensor, prefix string, n *nn.LayerNorm[B]) {
	addParam(dict, prefix+".gamma", n.Gamma)
	addParam(dict, prefix+".beta", n.Beta)
}

func addAttention[B tensor.Backend](dict map[string]*tensor.RawTensor, prefix string, a *nn.MultiHeadAttention[B]) {
	addLinear(dict, prefix+".wq", a.WQ)
	addLinear(dict, prefix+".wk", a.WK)
	addLinear(dict, prefix+".wv", a.WV)
	addLinear(dict, prefix+".wo", a.WO)
}

func addFFN[B tensor.Backend](dict map[string]*tensor.RawTensor, prefix string, f *nn.FFN[B]) {
	addLinear(dict, prefix+".linear1", f.Linear1)
	addLinear(dict, prefix+".linear2", f.Linear2)
}
