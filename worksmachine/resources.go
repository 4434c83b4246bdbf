package worksmachine

func Banner() string {
	return "" +
		"                                                                \n" +
		"   ████████╗███████╗██╗      ██████╗ ███████╗                   \n" +
		"   ╚══██╔══╝██╔════╝██║     ██╔═══██╗██╔════╝                   \n" +
		"      ██║   █████╗  ██║     ██║   ██║███████╗                   \n" +
		"      ██║   ██╔══╝  ██║     ██║   ██║╚════██║                   \n" +
		"      ██║   ███████╗███████╗╚██████╔╝███████║                   \n" +
		"      ╚═╝   ╚══════╝╚══════╝ ╚═════╝ ╚══════╝  W O R K S        \n" +
		"                                                                \n" +
		"       COMMUNITY WORK, FUNDED ONE MILESTONE AT A TIME           \n\n"
}
