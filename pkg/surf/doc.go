// Package surf computes SURF local-feature descriptors and the SURF-ref
// variant used for subcellular location analysis.
//
// SURF-ref detects interest points on a primary channel (usually the protein of
// interest) and describes each point twice: once on the primary channel and once
// on a reference channel (usually DNA) at the same spatial location. The two
// 64-element descriptors are concatenated into one 128-element row.
//
// # Pipeline
//
//  1. Integral image of the raw pixel values
//  2. Fast-Hessian detector: box-filter approximations of the Hessian
//     determinant over octaves and scales, 3x3x3 non-maximum suppression,
//     threshold on the response
//  3. Strongest MaxPoints responses are kept
//  4. Dominant orientation from Haar wavelet responses in a radius of 6s
//  5. 64-element descriptor: 4x4 sub-regions of 5x5 samples, summing dx, dy,
//     |dx| and |dy| in the rotated frame, normalised to unit length
//
// Descriptor matrices are gonum *mat.Dense values, one row per interest point.
//
// Reference: Coelho et al., "Determining the subcellular location of new
// proteins from microscope images using local features", Bioinformatics 2013.
package surf
