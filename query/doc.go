/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package query defines the criteria used to select entities — filter
// expression trees, ordering specs including natural order, requested lazy
// attributes, and pagination — together with the deduplicated Result type
// and the local evaluation used by in-process tiers and the live
// subscription differ.
package query
