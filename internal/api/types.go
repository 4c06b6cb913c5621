package api

import "github.com/samcharles93/arbor/internal/compiler"

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// BuildResponse describes one stored compilation.
type BuildResponse struct {
	ID           string           `json:"id"`
	Object       string           `json:"object"`
	CreatedAt    int64            `json:"created_at"`
	Graph        string           `json:"graph,omitempty"`
	Root         string           `json:"root"`
	Result       string           `json:"result"`
	Config       compiler.Config  `json:"config"`
	Stats        compiler.Stats   `json:"stats"`
	Instructions []string         `json:"instructions,omitempty"`
	Image        []uint32         `json:"image,omitempty"`
	Check        *compiler.Report `json:"check,omitempty"`
}

type DeleteBuildResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Builds  int    `json:"builds"`
}
