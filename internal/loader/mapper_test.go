package loader

import (
	"reflect"
	"testing"
)

func TestDETRMapper_AttentionNames(t *testing.T) {
	mapper := NewDETRMapper()

	mapped, err := mapper.MapName("transformer.encoder.layers.0.self_attn.in_proj_weight")
	if err != nil {
		t.Fatalf("MapName failed: %v", err)
	}
	want := []MappedParam{
		{Name: "transformer.encoder.layers.0.self_attn.wq.weight", Chunk: 0, Of: 3},
		{Name: "transformer.encoder.layers.0.self_attn.wk.weight", Chunk: 1, Of: 3},
		{Name: "transformer.encoder.layers.0.self_attn.wv.weight", Chunk: 2, Of: 3},
	}
	if !reflect.DeepEqual(mapped, want) {
		t.Errorf("in_proj_weight mapping:\ngot  %v\nwant %v", mapped, want)
	}

	mapped, err = mapper.MapName("transformer.decoder.layers.3.multihead_attn.in_proj_bias")
	if err != nil {
		t.Fatalf("MapName failed: %v", err)
	}
	want = []MappedParam{
		{Name: "transformer.decoder.layers.3.cross_attn.wq.bias", Chunk: 0, Of: 3},
		{Name: "transformer.decoder.layers.3.cross_attn.wk.bias", Chunk: 1, Of: 3},
		{Name: "transformer.decoder.layers.3.cross_attn.wv.bias", Chunk: 2, Of: 3},
	}
	if !reflect.DeepEqual(mapped, want) {
		t.Errorf("cross attention in_proj_bias mapping:\ngot  %v\nwant %v", mapped, want)
	}
}

func TestDETRMapper_SingleDestinations(t *testing.T) {
	mapper := NewDETRMapper()

	tests := []struct {
		in   string
		want string
	}{
		{"transformer.encoder.layers.2.self_attn.out_proj.weight", "transformer.encoder.layers.2.self_attn.wo.weight"},
		{"transformer.decoder.layers.0.multihead_attn.out_proj.bias", "transformer.decoder.layers.0.cross_attn.wo.bias"},
		{"transformer.encoder.layers.0.linear1.weight", "transformer.encoder.layers.0.ffn.linear1.weight"},
		{"transformer.encoder.layers.5.linear2.bias", "transformer.encoder.layers.5.ffn.linear2.bias"},
		{"transformer.encoder.layers.1.norm2.weight", "transformer.encoder.layers.1.norm2.gamma"},
		{"transformer.decoder.layers.4.norm3.bias", "transformer.decoder.layers.4.norm3.beta"},
		{"transformer.decoder.norm.weight", "transformer.decoder.norm.gamma"},
		{"transformer.decoder.norm.bias", "transformer.decoder.norm.beta"},
		{"query_embed.weight", "query_embed.weight"},
		{"input_proj.weight", "input_proj.weight"},
		{"class_embed.bias", "class_embed.bias"},
		{"bbox_embed.layers.1.weight", "bbox_embed.layers.1.weight"},
	}

	for _, tt := range tests {
		mapped, err := mapper.MapName(tt.in)
		if err != nil {
			t.Errorf("MapName(%s) failed: %v", tt.in, err)
			continue
		}
		if len(mapped) != 1 || mapped[0].Of != 1 {
			t.Errorf("MapName(%s): expected a single whole-tensor destination, got %v", tt.in, mapped)
			continue
		}
		if mapped[0].Name != tt.want {
			t.Errorf("MapName(%s) = %s, want %s", tt.in, mapped[0].Name, tt.want)
		}
	}
}

func TestDETRMapper_SkipsBackbone(t *testing.T) {
	mapper := NewDETRMapper()

	mapped, err := mapper.MapName("backbone.0.body.layer1.0.conv1.weight")
	if err != nil {
		t.Fatalf("MapName failed: %v", err)
	}
	if mapped != nil {
		t.Errorf("Expected backbone weight to map to nothing, got %v", mapped)
	}
}

func TestDETRMapper_RejectsUnknownNames(t *testing.T) {
	mapper := NewDETRMapper()

	for _, name := range []string{
		"optimizer.state.step",
		"transformer.encoder.layers.0.self_attn.in_proj",
		"transformer.encoder.layers.0.norm1.gamma",
		"transformer.encoder.norm1.weight",
	} {
		if _, err := mapper.MapName(name); err == nil {
			t.Errorf("Expected error for %s", name)
		}
	}
}

func TestNativeMapper_PassThrough(t *testing.T) {
	mapper := NewNativeMapper()

	name := "transformer.encoder.layers.0.self_attn.wq.weight"
	mapped, err := mapper.MapName(name)
	if err != nil {
		t.Fatalf("MapName failed: %v", err)
	}
	if len(mapped) != 1 || mapped[0].Name != name || mapped[0].Of != 1 {
		t.Errorf("Expected identity mapping, got %v", mapped)
	}
}

func TestDetectArchitecture(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{
			name: "published torch naming",
			names: []string{
				"transformer.encoder.layers.0.self_attn.in_proj_weight",
				"query_embed.weight",
			},
			want: ArchitectureDETR,
		},
		{
			name: "native naming",
			names: []string{
				"transformer.encoder.layers.0.self_attn.wq.weight",
				"transformer.decoder.norm.gamma",
			},
			want: ArchitectureNative,
		},
		{
			name:  "empty defaults to published",
			names: nil,
			want:  ArchitectureDETR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectArchitecture(tt.names); got != tt.want {
				t.Errorf("DetectArchitecture = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetMapper(t *testing.T) {
	if arch := GetMapper(ArchitectureNative).Architecture(); arch != ArchitectureNative {
		t.Errorf("Expected native mapper, got %s", arch)
	}
	if arch := GetMapper(ArchitectureDETR).Architecture(); arch != ArchitectureDETR {
		t.Errorf("Expected detr mapper, got %s", arch)
	}
	if arch := GetMapper("something-else").Architecture(); arch != ArchitectureDETR {
		t.Errorf("Expected fallback to detr mapper, got %s", arch)
	}
}
