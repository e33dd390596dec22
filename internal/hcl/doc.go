// Package hcl provides the concrete HCL implementation of the definition
// loading and expression evaluation interfaces defined in the `config`
// package. It is responsible for file parsing, HCL-to-model translation, and
// evaluating cycle conditions against parameter values.
//
// A definition tree looks like this:
//
//	phases {
//	  order   = ["setup", "main", "teardown"]
//	  default = "main"
//	}
//
//	parameter "count" {
//	  type    = number
//	  default = 0
//	}
//
//	command "loop" {
//	  action = "OnRunPrint"
//	  cycle "counter" {
//	    condition = param.count < 3
//	    commands  = ["inc"]
//	  }
//	}
package hcl
