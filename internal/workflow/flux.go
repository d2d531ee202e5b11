package workflow

// Models names the checkpoint files the backend loads for Flux Schnell.
type Models struct {
	UNet  string `yaml:"unet"`
	ClipL string `yaml:"clip_l"`
	T5XXL string `yaml:"t5xxl"`
	VAE   string `yaml:"vae"`
}

// Builder produces the fixed eight-node Flux Schnell graph:
//
//	1: UNETLoader          → model
//	2: DualCLIPLoader      → clip
//	3: VAELoader           → vae
//	4: CLIPTextEncodeFlux  → conditioning
//	5: EmptyLatentImage    → latent
//	6: KSampler            → sampled latent
//	7: VAEDecode           → image
//	8: SaveImage           → backend output directory
//
// Everything except the prompt and the seed is static configuration, so
// two calls with the same arguments yield identical graphs.
type Builder struct {
	Models         Models
	Width          int
	Height         int
	Guidance       float64
	Steps          int
	CFG            float64
	Sampler        string
	Scheduler      string
	FilenamePrefix string
}

// Build returns the graph for one generation request. The seed is
// forwarded to the sampler unchanged so that identical (prompt, seed)
// pairs request the same generation from the backend. The prompt feeds
// both halves of the dual text encoder.
func (b Builder) Build(prompt string, seed uint32) Graph {
	return Graph{
		"1": {
			ClassType: "UNETLoader",
			Inputs: map[string]any{
				"unet_name":    b.Models.UNet,
				"weight_dtype": "default",
			},
		},
		"2": {
			ClassType: "DualCLIPLoader",
			Inputs: map[string]any{
				"clip_name1": b.Models.ClipL,
				"clip_name2": b.Models.T5XXL,
				"type":       "flux",
			},
		},
		"3": {
			ClassType: "VAELoader",
			Inputs: map[string]any{
				"vae_name": b.Models.VAE,
			},
		},
		"4": {
			ClassType: "CLIPTextEncodeFlux",
			Inputs: map[string]any{
				"clip":     Ref{Node: "2"},
				"clip_l":   prompt,
				"t5xxl":    prompt,
				"guidance": b.Guidance,
			},
		},
		"5": {
			ClassType: "EmptyLatentImage",
			Inputs: map[string]any{
				"width":      b.Width,
				"height":     b.Height,
				"batch_size": 1,
			},
		},
		"6": {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"model":        Ref{Node: "1"},
				"positive":     Ref{Node: "4"},
				"negative":     Ref{Node: "4"},
				"latent_image": Ref{Node: "5"},
				"seed":         seed,
				"steps":        b.Steps,
				"cfg":          b.CFG,
				"sampler_name": b.Sampler,
				"scheduler":    b.Scheduler,
				"denoise":      1.0,
			},
		},
		"7": {
			ClassType: "VAEDecode",
			Inputs: map[string]any{
				"samples": Ref{Node: "6"},
				"vae":     Ref{Node: "3"},
			},
		},
		"8": {
			ClassType: "SaveImage",
			Inputs: map[string]any{
				"images":          Ref{Node: "7"},
				"filename_prefix": b.FilenamePrefix,
			},
		},
	}
}
