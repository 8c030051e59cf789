package models

type Laboratory struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Capacity    int    `json:"capacity" yaml:"capacity"`
}
