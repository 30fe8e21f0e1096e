package config

func flag(v bool) *bool {
	return &v
}

// DefaultConfig returns the configuration used when no file exists or a
// file leaves fields out.
func DefaultConfig() *Config {
	return &Config{
		Directives: DirectivesConfig{
			Namespace: "devana",
		},
		Comments: CommentsConfig{
			Accumulate:        flag(true),
			RemoveAsterisks:   flag(true),
			RemoveBlankLines:  flag(true),
			TrailingFieldDocs: flag(true),
		},
		Build: BuildConfig{
			Parallel:       flag(true),
			Jobs:           0,
			MaxDiagnostics: 1000,
		},
		Sources: SourcesConfig{
			Extensions: []string{".h", ".hh", ".hpp", ".hxx", ".cc", ".cpp", ".cxx"},
			Exclude: []string{
				"build/**",
				"third_party/**",
				".git/**",
			},
		},
	}
}

// Merge merges loaded config with defaults. Values from loaded take
// precedence; empty strings, zero numbers, nil flags and empty lists fall
// back to defaults.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}
	result.Directives = mergeDirectivesConfig(loaded.Directives, defaults.Directives)
	result.Comments = mergeCommentsConfig(loaded.Comments, defaults.Comments)
	result.Build = mergeBuildConfig(loaded.Build, defaults.Build)
	result.Sources = mergeSourcesConfig(loaded.Sources, defaults.Sources)
	return result
}

func mergeDirectivesConfig(loaded, defaults DirectivesConfig) DirectivesConfig {
	result := defaults
	if loaded.Namespace != "" {
		result.Namespace = loaded.Namespace
	}
	return result
}

func mergeFlag(loaded, defaults *bool) *bool {
	if loaded != nil {
		return flag(*loaded)
	}
	if defaults != nil {
		return flag(*defaults)
	}
	return nil
}

func mergeCommentsConfig(loaded, defaults CommentsConfig) CommentsConfig {
	return CommentsConfig{
		Accumulate:        mergeFlag(loaded.Accumulate, defaults.Accumulate),
		RemoveAsterisks:   mergeFlag(loaded.RemoveAsterisks, defaults.RemoveAsterisks),
		RemoveBlankLines:  mergeFlag(loaded.RemoveBlankLines, defaults.RemoveBlankLines),
		TrailingFieldDocs: mergeFlag(loaded.TrailingFieldDocs, defaults.TrailingFieldDocs),
	}
}

func mergeBuildConfig(loaded, defaults BuildConfig) BuildConfig {
	result := BuildConfig{Parallel: mergeFlag(loaded.Parallel, defaults.Parallel)}
	if loaded.Jobs != 0 {
		result.Jobs = loaded.Jobs
	} else {
		result.Jobs = defaults.Jobs
	}
	if loaded.MaxDiagnostics != 0 {
		result.MaxDiagnostics = loaded.MaxDiagnostics
	} else {
		result.MaxDiagnostics = defaults.MaxDiagnostics
	}
	return result
}

func mergeSourcesConfig(loaded, defaults SourcesConfig) SourcesConfig {
	result := SourcesConfig{}
	if len(loaded.Extensions) > 0 {
		result.Extensions = loaded.Extensions
	} else {
		result.Extensions = defaults.Extensions
	}
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}
	return result
}
