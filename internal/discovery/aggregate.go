package discovery

// Aggregate folds per-file parse results into the final report. Usages are
// grouped by exact variable name; the first-seen highest-confidence usage
// decides the aggregated type and confidence, every usage contributes a
// location, and distinct non-empty default values are collected per variable.
func Aggregate(results []ParseResult, filesScanned int) *Result {
	byName := make(map[string]*AggregatedEnvVar)
	defaults := make(map[string]map[string]bool)
	var order []string
	var warnings []Warning

	for _, res := range results {
		warnings = append(warnings, res.Warnings...)

		for _, usage := range res.Usages {
			agg, ok := byName[usage.Name]
			if !ok {
				agg = &AggregatedEnvVar{
					Name:       usage.Name,
					Type:       usage.Type,
					Confidence: usage.Confidence,
				}
				byName[usage.Name] = agg
				defaults[usage.Name] = make(map[string]bool)
				order = append(order, usage.Name)
			} else if usage.Confidence.Rank() < agg.Confidence.Rank() {
				// A strictly better usage takes over the type; ties keep
				// the first-seen pair.
				agg.Type = usage.Type
				agg.Confidence = usage.Confidence
			}

			agg.Locations = append(agg.Locations, Location{
				File:         usage.File,
				Line:         usage.Line,
				Context:      usage.Context,
				DefaultValue: usage.DefaultValue,
			})

			if usage.DefaultValue != "" && !defaults[usage.Name][usage.DefaultValue] {
				defaults[usage.Name][usage.DefaultValue] = true
				agg.DefaultValues = append(agg.DefaultValues, usage.DefaultValue)
			}
		}
	}

	result := &Result{
		Warnings:     warnings,
		FilesScanned: filesScanned,
	}
	for _, name := range order {
		result.EnvVars = append(result.EnvVars, *byName[name])
	}
	return result
}
