package cli

func regCommands() {
	//Daemon
	rootCmd.AddCommand(daemonCmd)

	//Ledger client
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(statusCmd)

	//Offline
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(addressCmd)
}
