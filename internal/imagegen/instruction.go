package imagegen

import (
	"fmt"
	"strings"

	"floorplan/internal/domain"
)

// BuildInstruction turns the house details into the image prompt. Without
// details the freeform prompt is returned as is.
func BuildInstruction(details *domain.HouseSpec, prompt string) string {
	if details == nil {
		return prompt
	}

	archStyle := strings.TrimSpace(details.ArchStyle)
	if archStyle == "" {
		archStyle = domain.DefaultArchStyle
	}

	parts := []string{
		"High-angle isometric 3D floor plan render, cutaway view, white background.",
		fmt.Sprintf("Architectural style: %s.", archStyle),
		fmt.Sprintf("Layout specifications: %d sqft, %d bedrooms, %d bathrooms, %s.",
			details.SqFeet, details.Bedrooms, details.Bathrooms, details.LayoutType),
	}
	if render := strings.TrimSpace(details.RenderStyle); render != "" {
		parts = append(parts, fmt.Sprintf("Render style: %s.", render))
	}
	parts = append(parts,
		"CRITICAL DETAILS:",
		"- Walls: Thick white cutaway walls, clear room separation.",
		"- Flooring: High-quality wooden textures for living areas, tiles for bathrooms.",
		"- Lighting: Global illumination, soft sun lighting, ambient occlusion (no harsh shadows).",
		fmt.Sprintf("- Furniture: Fully furnished with realistic %s furniture, beds, sofas, dining table.", archStyle),
		"- View: Orthographic projection (perfect 30-degree isometric angle).",
	)
	if len(details.Features) > 0 {
		parts = append(parts, fmt.Sprintf("Rooms included: %s.", strings.Join(details.Features, ", ")))
	}
	parts = append(parts, "8k resolution, photorealistic, architectural visualization, unreal engine 5 style.")
	return strings.Join(parts, "\n")
}
