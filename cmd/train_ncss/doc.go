// Package main trains the speech synthesis model on a text-mel corpus. It takes
// no flags: the compiled hyperparameters are overridden by NCSS_* environment
// variables, the effective configuration is saved next to the checkpoint and
// training resumes from that checkpoint when it exists.
package main
