// Package config loads and validates wharf.json project configuration.
//
// A wharf project is any directory containing a wharf.json file. The file
// declares the source inputs (application source, markup, styles, helper
// script module), dependency installer settings including an explicit cache
// directory, bundler output settings, and runtime image settings.
//
// All fields are optional; New() provides defaults matching the canonical
// project layout:
//
//	project/
//	├── wharf.json
//	├── index.html
//	├── app/            # application source (compiled to WASM)
//	├── styles/
//	├── static/
//	└── helper/         # auxiliary script module
//	    ├── package.json
//	    └── package-lock.json
package config
